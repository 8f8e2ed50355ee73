//go:build darwin

package overlay

import (
	"FloatOverlay/internal/logger"
	"FloatOverlay/internal/window"

	"github.com/ebitengine/purego"
	"github.com/ebitengine/purego/objc"
)

const (
	nsWindowCollectionBehaviorCanJoinAllSpaces = 1 << 0
	nsWindowCollectionBehaviorStationary       = 1 << 4
	nsNormalWindowLevel                        = 0
	nsFloatingWindowLevel                      = 3
	nsStatusWindowLevel                        = 25
)

var (
	sel_sharedApplication     = objc.RegisterName("sharedApplication")
	sel_mainWindow            = objc.RegisterName("mainWindow")
	sel_windows               = objc.RegisterName("windows")
	sel_firstObject           = objc.RegisterName("firstObject")
	sel_collectionBehavior    = objc.RegisterName("collectionBehavior")
	sel_setCollectionBehavior = objc.RegisterName("setCollectionBehavior:")
	sel_setIgnoresMouseEvents = objc.RegisterName("setIgnoresMouseEvents:")
	sel_setLevel              = objc.RegisterName("setLevel:")
	mainQueue                 uintptr
	dispatchAsync             func(queue, block uintptr)
)

func init() {
	if _, err := purego.Dlopen("/System/Library/Frameworks/AppKit.framework/AppKit", purego.RTLD_NOW|purego.RTLD_GLOBAL); err != nil {
		logger.Debug("native_darwin: AppKit Dlopen failed", "err", err)
		return
	}
	libdispatch, err := purego.Dlopen("/usr/lib/system/libdispatch.dylib", purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		logger.Debug("native_darwin: libdispatch Dlopen failed", "err", err)
		return
	}
	sym, err := purego.Dlsym(libdispatch, "_dispatch_main_q")
	if err != nil {
		logger.Debug("native_darwin: Dlsym _dispatch_main_q failed", "err", err)
		return
	}
	mainQueue = sym
	purego.RegisterLibFunc(&dispatchAsync, libdispatch, "dispatch_async")
}

func overlayWindow() objc.ID {
	appClass := objc.GetClass("NSApplication")
	if appClass == 0 {
		return 0
	}
	app := objc.ID(appClass).Send(sel_sharedApplication)
	if app == 0 {
		return 0
	}
	// the overlay is never key, so mainWindow is usually nil
	if w := app.Send(sel_mainWindow); w != 0 {
		return w
	}
	return app.Send(sel_windows).Send(sel_firstObject)
}

// setFlags runs on the main thread (AppKit requirement).
func setFlags(flags window.Flags, z zLevel) {
	w := overlayWindow()
	if w == 0 {
		logger.Debug("native_darwin: no NSWindow yet")
		return
	}
	// OR with the existing behavior so we don't strip flags set by GLFW/Ebiten.
	current := objc.Send[uintptr](w, sel_collectionBehavior)
	behavior := current | nsWindowCollectionBehaviorStationary
	level := nsNormalWindowLevel
	switch z {
	case levelFloating:
		level = nsFloatingWindowLevel
	case levelStatus:
		level = nsStatusWindowLevel
	}
	if flags.AlwaysOnTop {
		behavior |= nsWindowCollectionBehaviorCanJoinAllSpaces
	}
	w.Send(sel_setCollectionBehavior, behavior)
	w.Send(sel_setLevel, level)
	ignore := 0
	if !flags.Touchable {
		ignore = 1
	}
	w.Send(sel_setIgnoresMouseEvents, ignore)
}

// applyNativeFlags schedules the Spaces, level and click-through settings
// on the main thread. Called only when the flags change, so each call
// leaks one block: dispatch_async is asynchronous and releasing the block
// before the main thread runs it crashes.
func applyNativeFlags(_ string, flags window.Flags, z zLevel) bool {
	if mainQueue == 0 || dispatchAsync == nil {
		return false
	}
	block := objc.NewBlock(func(_ objc.Block) {
		setFlags(flags, z)
	})
	dispatchAsync(mainQueue, uintptr(block))
	return true
}
