package driver

import (
	"context"

	"github.com/goplus/uitest/driver/appium"
)

// Element is a read-only view of a UI element in a live session. Every
// geometry accessor queries the device, so values are never stale.
type Element struct {
	id      string
	session *appium.Session
}

// ID returns the server-side element reference.
func (e *Element) ID() string {
	return e.id
}

// Coordinates returns the element's top-left corner.
func (e *Element) Coordinates(ctx context.Context) (appium.Point, error) {
	return e.session.Location(ctx, e.id)
}

// Rect returns the element's bounding rectangle.
func (e *Element) Rect(ctx context.Context) (appium.Rect, error) {
	return e.session.Rect(ctx, e.id)
}

// LocationOnScreenOnceScrolledIntoView scrolls the element into view and
// returns where it ends up on screen.
func (e *Element) LocationOnScreenOnceScrolledIntoView(ctx context.Context) (appium.Point, error) {
	return e.session.LocationInView(ctx, e.id)
}

// Click taps the element.
func (e *Element) Click(ctx context.Context) error {
	return e.session.Click(ctx, e.id)
}

// SendKeys types text into the element.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	return e.session.SendKeys(ctx, e.id, text)
}
