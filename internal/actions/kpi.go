package actions

import (
	"context"
	"fmt"
	"strings"
)

// KPI is one rendered summary card.
type KPI struct {
	Title string   `json:"title"`
	Units []string `json:"units"`
}

// ReadKPIs reads every KPI card with the comparison units it shows. Units are
// rendered as "к 2022" and reported without the prefix.
func ReadKPIs(ctx context.Context, d Driver) ([]KPI, error) {
	const card = ".small-kpi"
	cards, err := d.Query(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("list kpis: %w", err)
	}

	kpis := make([]KPI, 0, len(cards))
	for i := range cards {
		titles, err := d.QueryIn(ctx, card, i, ".small-kpi__title")
		if err != nil {
			return nil, fmt.Errorf("kpi %d title: %w", i, err)
		}
		units, err := d.QueryIn(ctx, card, i, ".ps-1")
		if err != nil {
			return nil, fmt.Errorf("kpi %d units: %w", i, err)
		}

		k := KPI{Units: make([]string, 0, len(units))}
		if len(titles) > 0 {
			k.Title = titles[0].Text
		}
		for _, u := range units {
			k.Units = append(k.Units, strings.Replace(u.Text, "к ", "", 1))
		}
		kpis = append(kpis, k)
	}
	return kpis, nil
}
