// Package input registers the global hotkeys that drive the pipeline:
// a listen toggle and a cancel key for discarding the current recording.
package input

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.design/x/hotkey"
)

// Bindings names the two pipeline hotkeys as "mod+mod+key" strings.
type Bindings struct {
	// Toggle flips listening on and off.
	Toggle string
	// Cancel discards the in-progress recording. Optional.
	Cancel string
}

// HotkeyManager manages global hotkey registration and events
type HotkeyManager struct {
	mu        sync.Mutex
	toggleHK  *hotkey.Hotkey
	cancelHK  *hotkey.Hotkey
	listening bool
	onToggle  func(listening bool)
	onCancel  func()
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewHotkeyManager creates a new HotkeyManager. onCancel may be nil.
func NewHotkeyManager(onToggle func(listening bool), onCancel func()) *HotkeyManager {
	return &HotkeyManager{
		onToggle:  onToggle,
		onCancel:  onCancel,
		listening: true,
		done:      make(chan struct{}),
	}
}

// Start registers the bindings and begins listening for key events.
func (h *HotkeyManager) Start(ctx context.Context, bindings Bindings) error {
	mods, key, err := parseHotkey(bindings.Toggle)
	if err != nil {
		return fmt.Errorf("invalid toggle hotkey: %w", err)
	}
	h.toggleHK = hotkey.New(mods, key)
	if err := h.toggleHK.Register(); err != nil {
		return fmt.Errorf("failed to register toggle hotkey: %w", err)
	}

	var cancelDown <-chan hotkey.Event
	if bindings.Cancel != "" {
		mods, key, err := parseHotkey(bindings.Cancel)
		if err != nil {
			h.toggleHK.Unregister()
			return fmt.Errorf("invalid cancel hotkey: %w", err)
		}
		h.cancelHK = hotkey.New(mods, key)
		if err := h.cancelHK.Register(); err != nil {
			h.toggleHK.Unregister()
			return fmt.Errorf("failed to register cancel hotkey: %w", err)
		}
		cancelDown = h.cancelHK.Keydown()
	}

	ctx, h.cancel = context.WithCancel(ctx)

	go func() {
		defer close(h.done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-h.toggleHK.Keydown():
				if !ok {
					return
				}
				h.mu.Lock()
				h.listening = !h.listening
				listening := h.listening
				h.mu.Unlock()

				if h.onToggle != nil {
					h.onToggle(listening)
				}
			case _, ok := <-cancelDown:
				if !ok {
					return
				}
				if h.onCancel != nil {
					h.onCancel()
				}
			}
		}
	}()

	return nil
}

// Stop stops listening for hotkey events
func (h *HotkeyManager) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	if h.toggleHK != nil {
		h.toggleHK.Unregister()
	}
	if h.cancelHK != nil {
		h.cancelHK.Unregister()
	}
	// Wait briefly for goroutine to exit
	if h.done != nil {
		select {
		case <-h.done:
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// IsListening returns whether the toggle currently has listening enabled.
func (h *HotkeyManager) IsListening() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.listening
}

// parseHotkey parses a hotkey string like "ctrl+shift+space" into modifiers and key
func parseHotkey(s string) ([]hotkey.Modifier, hotkey.Key, error) {
	parts := strings.Split(strings.ToLower(s), "+")
	if len(parts) == 0 {
		return nil, 0, fmt.Errorf("empty hotkey string")
	}

	var mods []hotkey.Modifier
	var key hotkey.Key
	var keyFound bool

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "ctrl", "control":
			mods = append(mods, hotkey.ModCtrl)
		case "shift":
			mods = append(mods, hotkey.ModShift)
		case "alt":
			mods = append(mods, modAlt())
		case "cmd", "command", "super", "win":
			mods = append(mods, modSuper())
		default:
			if keyFound {
				return nil, 0, fmt.Errorf("multiple keys specified")
			}
			k, err := parseKey(part)
			if err != nil {
				return nil, 0, err
			}
			key = k
			keyFound = true
		}
	}

	if !keyFound {
		return nil, 0, fmt.Errorf("no key specified")
	}

	return mods, key, nil
}

// parseKey parses a key name to hotkey.Key
func parseKey(s string) (hotkey.Key, error) {
	switch s {
	case "space":
		return hotkey.KeySpace, nil
	case "return", "enter":
		return hotkey.KeyReturn, nil
	case "tab":
		return hotkey.KeyTab, nil
	case "escape", "esc":
		return hotkey.KeyEscape, nil
	case "a":
		return hotkey.KeyA, nil
	case "b":
		return hotkey.KeyB, nil
	case "c":
		return hotkey.KeyC, nil
	case "d":
		return hotkey.KeyD, nil
	case "e":
		return hotkey.KeyE, nil
	case "f":
		return hotkey.KeyF, nil
	case "g":
		return hotkey.KeyG, nil
	case "h":
		return hotkey.KeyH, nil
	case "i":
		return hotkey.KeyI, nil
	case "j":
		return hotkey.KeyJ, nil
	case "k":
		return hotkey.KeyK, nil
	case "l":
		return hotkey.KeyL, nil
	case "m":
		return hotkey.KeyM, nil
	case "n":
		return hotkey.KeyN, nil
	case "o":
		return hotkey.KeyO, nil
	case "p":
		return hotkey.KeyP, nil
	case "q":
		return hotkey.KeyQ, nil
	case "r":
		return hotkey.KeyR, nil
	case "s":
		return hotkey.KeyS, nil
	case "t":
		return hotkey.KeyT, nil
	case "u":
		return hotkey.KeyU, nil
	case "v":
		return hotkey.KeyV, nil
	case "w":
		return hotkey.KeyW, nil
	case "x":
		return hotkey.KeyX, nil
	case "y":
		return hotkey.KeyY, nil
	case "z":
		return hotkey.KeyZ, nil
	case "0":
		return hotkey.Key0, nil
	case "1":
		return hotkey.Key1, nil
	case "2":
		return hotkey.Key2, nil
	case "3":
		return hotkey.Key3, nil
	case "4":
		return hotkey.Key4, nil
	case "5":
		return hotkey.Key5, nil
	case "6":
		return hotkey.Key6, nil
	case "7":
		return hotkey.Key7, nil
	case "8":
		return hotkey.Key8, nil
	case "9":
		return hotkey.Key9, nil
	case "f1":
		return hotkey.KeyF1, nil
	case "f2":
		return hotkey.KeyF2, nil
	case "f3":
		return hotkey.KeyF3, nil
	case "f4":
		return hotkey.KeyF4, nil
	case "f5":
		return hotkey.KeyF5, nil
	case "f6":
		return hotkey.KeyF6, nil
	case "f7":
		return hotkey.KeyF7, nil
	case "f8":
		return hotkey.KeyF8, nil
	case "f9":
		return hotkey.KeyF9, nil
	case "f10":
		return hotkey.KeyF10, nil
	case "f11":
		return hotkey.KeyF11, nil
	case "f12":
		return hotkey.KeyF12, nil
	default:
		return 0, fmt.Errorf("unknown key: %s", s)
	}
}
