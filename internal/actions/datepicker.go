package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/dashprobe/internal/pagemodel"
)

// Datepicker component hooks.
const (
	selDateValue = ".vuejs3-datepicker__value"
	selCalPrev   = ".vuejs3-datepicker__calendar .prev"
	selCalNext   = ".vuejs3-datepicker__calendar .next"
	selCalCell   = ".vuejs3-datepicker__calendar .cell"
	selCalHeader = ".day__month_btn"
)

// monthNumbers maps the calendar header's month abbreviations.
var monthNumbers = map[string]string{
	"Янв": "01",
	"Фев": "02",
	"Мар": "03",
	"Апр": "04",
	"Май": "05",
	"Июн": "06",
	"Июл": "07",
	"Авг": "08",
	"Сен": "09",
	"Окт": "10",
	"Ноя": "11",
	"Дек": "12",
}

// ErrUnknownMonth is returned when the calendar header cannot be read as "<Mon>. <YYYY>".
var ErrUnknownMonth = errors.New("unrecognized calendar header")

// FormatDate builds the display text (DD.MM.YYYY) and value (YYYY-MM-DD) for
// a day clicked while the calendar header reads e.g. "Дек. 2023".
func FormatDate(day, header string) (string, string, error) {
	month, year, ok := strings.Cut(strings.TrimSpace(header), ". ")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownMonth, header)
	}
	mm, ok := monthNumbers[month]
	if !ok {
		return "", "", fmt.Errorf("%w: month %q", ErrUnknownMonth, month)
	}
	year = strings.TrimSpace(year)
	dd := day
	if len(dd) == 1 {
		dd = "0" + dd
	}
	return dd + "." + mm + "." + year, year + "-" + mm + "-" + dd, nil
}

type datepicker struct {
	driver Driver
	commit time.Duration
	settle time.Duration
	logger *zap.Logger
}

// run opens the picker under scope and replays steps. When no select step
// matches a cell both results stay empty.
func (p *datepicker) run(ctx context.Context, scope string, action pagemodel.DatepickerAction) (string, string, error) {
	opener := within(scope, selDateValue)
	if err := p.driver.ScrollNth(ctx, opener, 0); err != nil {
		return "", "", fmt.Errorf("open datepicker: %w", err)
	}
	if err := p.driver.ClickNth(ctx, opener, 0); err != nil {
		return "", "", fmt.Errorf("open datepicker: %w", err)
	}
	if err := p.driver.Sleep(ctx, p.commit); err != nil {
		return "", "", err
	}

	var valueText, value string
	for i, step := range action.Picker {
		switch step.Action {
		case pagemodel.StepPrev, pagemodel.StepNext:
			sel := selCalPrev
			if step.Action == pagemodel.StepNext {
				sel = selCalNext
			}
			if err := p.driver.ClickNth(ctx, within(scope, sel), 0); err != nil {
				return "", "", fmt.Errorf("picker step %d (%s): %w", i, step.Action, err)
			}
			if err := p.driver.Sleep(ctx, p.settle); err != nil {
				return "", "", err
			}
		case pagemodel.StepSelect:
			vt, v, err := p.selectDay(ctx, scope, step.Day)
			if err != nil {
				return "", "", fmt.Errorf("picker step %d (select %s): %w", i, step.Day, err)
			}
			if vt != "" {
				valueText, value = vt, v
			}
		}
	}

	if valueText == "" {
		p.logger.Warn("Datepicker steps never matched a calendar cell.", zap.String("scope", scope))
	}
	if err := p.driver.Sleep(ctx, action.WaitTime.Std()); err != nil {
		return "", "", err
	}
	return valueText, value, nil
}

func (p *datepicker) selectDay(ctx context.Context, scope, day string) (string, string, error) {
	cellSel := within(scope, selCalCell)
	cells, err := p.driver.Query(ctx, cellSel)
	if err != nil {
		return "", "", err
	}
	for i, cell := range cells {
		if cell.Text != day {
			continue
		}
		header, err := queryOne(ctx, p.driver, within(scope, selCalHeader))
		if err != nil {
			return "", "", err
		}
		valueText, value, err := FormatDate(day, header.Text)
		if err != nil {
			return "", "", err
		}
		if err := p.driver.ClickNth(ctx, cellSel, i); err != nil {
			return "", "", err
		}
		if err := p.driver.Sleep(ctx, p.commit); err != nil {
			return "", "", err
		}
		return valueText, value, nil
	}
	return "", "", nil
}
