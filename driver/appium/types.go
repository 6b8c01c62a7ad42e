package appium

// Capabilities is a set of desired session capabilities.
type Capabilities map[string]any

type newSessionRequest struct {
	Capabilities struct {
		AlwaysMatch Capabilities   `json:"alwaysMatch"`
		FirstMatch  []Capabilities `json:"firstMatch,omitempty"`
	} `json:"capabilities"`
	// Servers that predate W3C sessions only read desiredCapabilities.
	DesiredCapabilities Capabilities `json:"desiredCapabilities"`
}

// elementKey is the W3C web element identifier.
const elementKey = "element-6066-11e4-a52e-4f735466cecf"

// Rect is an element's position and size in device independent pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a screen location.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
