// internal/browser/hover.go
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// hoverNode moves the mouse to the centre of node so :hover styles and
// mouseenter handlers fire.
func hoverNode(ctx context.Context, node *cdp.Node) error {
	if err := dom.ScrollIntoViewIfNeeded().WithNodeID(node.NodeID).Do(ctx); err != nil {
		return fmt.Errorf("scroll into view: %w", err)
	}
	box, err := dom.GetBoxModel().WithNodeID(node.NodeID).Do(ctx)
	if err != nil {
		return fmt.Errorf("box model: %w", err)
	}
	x, y, err := quadCenter(box.Content)
	if err != nil {
		return err
	}
	return chromedp.MouseEvent(input.MouseMoved, x, y).Do(ctx)
}

func quadCenter(q dom.Quad) (float64, float64, error) {
	if len(q) < 8 {
		return 0, 0, fmt.Errorf("invalid content quad with %d points", len(q))
	}
	var x, y float64
	for i := 0; i < 8; i += 2 {
		x += q[i]
		y += q[i+1]
	}
	return x / 4, y / 4, nil
}
