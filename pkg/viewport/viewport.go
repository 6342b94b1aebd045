// Package viewport animates the canvas camera toward navigation targets.
//
// At most one animation runs at a time: a new intent cancels the one in
// flight and starts from wherever the camera currently is.
package viewport

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Camera is the canvas viewport transform.
type Camera struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Target is where a navigation ends.
type Target struct {
	Route  string `json:"route"`
	Camera Camera `json:"camera"`
}

// Result reports how a navigation ended.
type Result struct {
	Target    Target
	Completed bool // false when a newer intent or ctx cancelled it
}

// Defaults for [Options].
const (
	DefaultDuration = 300 * time.Millisecond
	DefaultStep     = 16 * time.Millisecond
)

// Options configures a Navigator.
type Options struct {
	Duration time.Duration
	Step     time.Duration
	// OnFrame receives every intermediate camera, including the last.
	OnFrame func(Camera)
	Logger  *log.Logger
}

// Navigator owns the camera.
type Navigator struct {
	duration time.Duration
	step     time.Duration
	onFrame  func(Camera)
	logger   *log.Logger

	mu     sync.Mutex
	camera Camera
	route  string
	cancel context.CancelFunc
	gen    uint64
}

// New creates a Navigator with the camera at start.
func New(start Camera, opts Options) *Navigator {
	n := &Navigator{
		duration: opts.Duration,
		step:     opts.Step,
		onFrame:  opts.OnFrame,
		logger:   opts.Logger,
		camera:   start,
	}
	if n.duration <= 0 {
		n.duration = DefaultDuration
	}
	if n.step <= 0 {
		n.step = DefaultStep
	}
	if n.logger == nil {
		n.logger = log.Default()
	}
	if n.camera.Zoom == 0 {
		n.camera.Zoom = 1
	}
	return n
}

// Camera returns the current camera.
func (n *Navigator) Camera() Camera {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.camera
}

// Route returns the route of the last completed navigation.
func (n *Navigator) Route() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}

// Navigate starts animating toward t, cancelling any animation in flight.
// The returned channel receives exactly one Result.
func (n *Navigator) Navigate(ctx context.Context, t Target) <-chan Result {
	if t.Camera.Zoom == 0 {
		t.Camera.Zoom = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
	}
	n.cancel = cancel
	n.gen++
	gen := n.gen
	from := n.camera
	n.mu.Unlock()

	n.logger.Debug("navigating", "route", t.Route, "x", t.Camera.X, "y", t.Camera.Y, "zoom", t.Camera.Zoom)

	done := make(chan Result, 1)
	go func() {
		defer cancel()
		done <- n.animate(ctx, gen, from, t)
	}()
	return done
}

func (n *Navigator) animate(ctx context.Context, gen uint64, from Camera, t Target) Result {
	ticker := time.NewTicker(n.step)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return Result{Target: t}
		case now := <-ticker.C:
			p := float64(now.Sub(start)) / float64(n.duration)
			if p > 1 {
				p = 1
			}
			cam := Lerp(from, t.Camera, Ease(p))

			n.mu.Lock()
			if n.gen != gen {
				n.mu.Unlock()
				return Result{Target: t}
			}
			n.camera = cam
			if p == 1 {
				n.route = t.Route
				n.cancel = nil
			}
			n.mu.Unlock()

			if n.onFrame != nil {
				n.onFrame(cam)
			}
			if p == 1 {
				return Result{Target: t, Completed: true}
			}
		}
	}
}

// Cancel stops the animation in flight, leaving the camera where it is.
func (n *Navigator) Cancel() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.gen++
}

// Ease is a cubic ease-in-out curve on [0, 1].
func Ease(p float64) float64 {
	if p < 0.5 {
		return 4 * p * p * p
	}
	q := -2*p + 2
	return 1 - q*q*q/2
}

// Lerp interpolates between two cameras.
func Lerp(a, b Camera, p float64) Camera {
	return Camera{
		X:    a.X + (b.X-a.X)*p,
		Y:    a.Y + (b.Y-a.Y)*p,
		Zoom: a.Zoom + (b.Zoom-a.Zoom)*p,
	}
}
