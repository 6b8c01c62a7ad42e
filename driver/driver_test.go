package driver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goplus/uitest/driver/appium"
	"github.com/goplus/uitest/platform"
	"github.com/goplus/uitest/testconfig"
)

func androidConfig(t *testing.T) *testconfig.Config {
	t.Helper()
	apk := filepath.Join(t.TempDir(), "com.example.app-Signed.apk")
	if err := os.WriteFile(apk, []byte("apk"), 0o644); err != nil {
		t.Fatal(err)
	}
	return testconfig.Merge(&testconfig.Config{
		Capabilities: map[string]string{"automationName": "UiAutomator2", "language": "en"},
	}, platform.Android, apk, platform.Device{Name: "Pixel_4", UDID: "emulator-5554", OSVersion: "30"})
}

func TestAndroidCapabilities(t *testing.T) {
	c := androidConfig(t)
	caps, err := Capabilities(c)
	if err != nil {
		t.Fatalf("Capabilities: %v", err)
	}
	want := appium.Capabilities{
		"app":                  c.AppPath,
		"platformName":         "Android",
		"deviceName":           "Pixel_4",
		"udid":                 "emulator-5554",
		"automationName":       "Espresso",
		"forceEspressoRebuild": true,
		"enforceAppInstall":    true,
		"language":             "en",
	}
	if len(caps) != len(want) {
		t.Fatalf("Capabilities = %v, want %v", caps, want)
	}
	for k, v := range want {
		if caps[k] != v {
			t.Errorf("caps[%q] = %v, want %v", k, caps[k], v)
		}
	}
}

func TestCapabilitiesSparse(t *testing.T) {
	c := testconfig.Merge(nil, platform.IOS, filepath.Join(t.TempDir(), "missing.app"), platform.Device{})
	caps, err := Capabilities(c)
	if err != nil {
		t.Fatalf("Capabilities: %v", err)
	}
	for _, k := range []string{"app", "deviceName", "udid", "platformVersion"} {
		if _, ok := caps[k]; ok {
			t.Errorf("caps has %q = %v, want it omitted", k, caps[k])
		}
	}
	if caps["automationName"] != "XCUITest" || caps["platformName"] != "iOS" {
		t.Fatalf("Capabilities = %v", caps)
	}
}

func TestCapabilitiesFromHandWrittenConfig(t *testing.T) {
	c, err := testconfig.Parse("uitest.json", []byte(`{
	  // edited by hand
	  "platform": "android",
	  "deviceName": "Pixel_4",
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	caps, err := Capabilities(c)
	if err != nil {
		t.Fatalf("Capabilities: %v", err)
	}
	if caps["platformName"] != "Android" || caps["automationName"] != "Espresso" {
		t.Fatalf("Capabilities = %v", caps)
	}
}

func TestCapabilitiesUnsupported(t *testing.T) {
	_, err := Capabilities(&testconfig.Config{})
	if !errors.Is(err, ErrDriverConstruction) {
		t.Fatalf("err = %v, want ErrDriverConstruction", err)
	}
}

type fakeAppium struct {
	caps      map[string]any
	settings  map[string]any
	rectCalls atomic.Int32
	fail      bool
}

func (f *fakeAppium) serve(t *testing.T) string {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /wd/hub/session", func(w http.ResponseWriter, r *http.Request) {
		if f.fail {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{"value": map[string]string{
				"error": "session not created", "message": "no device"}})
			return
		}
		var req struct {
			Capabilities struct {
				AlwaysMatch map[string]any `json:"alwaysMatch"`
			} `json:"capabilities"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.caps = req.Capabilities.AlwaysMatch
		json.NewEncoder(w).Encode(map[string]any{"value": map[string]string{"sessionId": "s1"}})
	})
	mux.HandleFunc("POST /wd/hub/session/s1/appium/settings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Settings map[string]any `json:"settings"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.settings = req.Settings
		w.Write([]byte(`{"value":null}`))
	})
	mux.HandleFunc("POST /wd/hub/session/s1/element", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":{"element-6066-11e4-a52e-4f735466cecf":"e1"}}`))
	})
	mux.HandleFunc("GET /wd/hub/session/s1/element/e1/rect", func(w http.ResponseWriter, r *http.Request) {
		n := f.rectCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"value": appium.Rect{X: float64(n), Y: 2, Width: 3, Height: 4}})
	})
	mux.HandleFunc("GET /wd/hub/session/s1/element/e1/location", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":{"x":1,"y":2}}`))
	})
	mux.HandleFunc("GET /wd/hub/session/s1/element/e1/location_in_view", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":{"x":1,"y":0}}`))
	})
	mux.HandleFunc("DELETE /wd/hub/session/s1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":null}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL + "/wd/hub"
}

func TestNewAndElement(t *testing.T) {
	f := &fakeAppium{}
	c := androidConfig(t)
	c.AppiumServer = f.serve(t)
	c.Settings["waitForIdleTimeout"] = "100"
	ctx := context.Background()

	d, err := New(ctx, c)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Quit(ctx)
	if d.SessionID() != "s1" || d.Device.Name != "Pixel_4" {
		t.Fatalf("Driver = %+v", d)
	}
	if f.caps["automationName"] != "Espresso" || f.settings["waitForIdleTimeout"] != "100" {
		t.Fatalf("server saw caps %v settings %v", f.caps, f.settings)
	}

	el, err := d.FindElement(ctx, "accessibility id", "Login")
	if err != nil {
		t.Fatalf("FindElement: %v", err)
	}
	r1, err := el.Rect(ctx)
	if err != nil {
		t.Fatal(err)
	}
	r2, _ := el.Rect(ctx)
	if r1.X == r2.X {
		t.Fatalf("Rect was cached: %+v then %+v", r1, r2)
	}
	p, err := el.Coordinates(ctx)
	if err != nil || p != (appium.Point{X: 1, Y: 2}) {
		t.Fatalf("Coordinates = %+v, %v", p, err)
	}
	p, err = el.LocationOnScreenOnceScrolledIntoView(ctx)
	if err != nil || p != (appium.Point{X: 1, Y: 0}) {
		t.Fatalf("LocationOnScreenOnceScrolledIntoView = %+v, %v", p, err)
	}
}

func TestNewServerOverride(t *testing.T) {
	f := &fakeAppium{}
	c := androidConfig(t)
	c.AppiumServer = "http://127.0.0.1:1/unused"
	d, err := New(context.Background(), c, WithServer(f.serve(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.Quit(context.Background())
}

func TestNewTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	start := time.Now()
	_, err := New(context.Background(), androidConfig(t), WithServer(srv.URL), WithTimeout(50*time.Millisecond))
	if !errors.Is(err, ErrDriverConstruction) {
		t.Fatalf("err = %v, want ErrDriverConstruction", err)
	}
	if d := time.Since(start); d > 3*time.Second {
		t.Fatalf("New took %v with a 50ms timeout", d)
	}
}

func TestNewSessionFailure(t *testing.T) {
	f := &fakeAppium{fail: true}
	c := androidConfig(t)
	c.AppiumServer = f.serve(t)
	_, err := New(context.Background(), c)
	if !errors.Is(err, ErrDriverConstruction) {
		t.Fatalf("err = %v, want ErrDriverConstruction", err)
	}
	var we *appium.Error
	if !errors.As(err, &we) || we.Code != "session not created" {
		t.Fatalf("err = %v, want *appium.Error", err)
	}
}

func TestOpenReadsConfigFile(t *testing.T) {
	f := &fakeAppium{}
	c := androidConfig(t)
	c.AppiumServer = f.serve(t)
	path := filepath.Join(t.TempDir(), "uitest.json")
	if err := c.Save(path); err != nil {
		t.Fatal(err)
	}
	t.Setenv(testconfig.PathEnv, path)

	d, err := Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Quit(context.Background())
	if d.Device.UDID != "emulator-5554" {
		t.Fatalf("Device = %+v", d.Device)
	}
}
