//go:build windows

package overlay

import (
	"syscall"
	"unsafe"

	"FloatOverlay/internal/logger"
	"FloatOverlay/internal/window"

	"golang.org/x/sys/windows"
)

var (
	user32                         = windows.NewLazySystemDLL("user32.dll")
	procFindWindowW                = user32.NewProc("FindWindowW")
	procGetWindowLongW             = user32.NewProc("GetWindowLongW")
	procSetWindowLongW             = user32.NewProc("SetWindowLongW")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
	procSetWindowPos               = user32.NewProc("SetWindowPos")
)

const (
	WS_EX_LAYERED     = 0x80000
	WS_EX_TRANSPARENT = 0x20
	WS_EX_TOPMOST     = 0x8
	WS_EX_TOOLWINDOW  = 0x80
	WS_EX_NOACTIVATE  = 0x08000000
	HWND_TOPMOST      = ^uintptr(0)     // -1
	HWND_NOTOPMOST    = ^uintptr(0) - 1 // -2
	SWP_NOMOVE        = 0x0002
	SWP_NOSIZE        = 0x0001
	SWP_NOACTIVATE    = 0x0010
	SWP_SHOWWINDOW    = 0x0040
	LWA_ALPHA         = 0x2
)

// exStyle returns style with the overlay bits set or cleared for flags.
func exStyle(style uintptr, flags window.Flags) uintptr {
	style |= WS_EX_LAYERED | WS_EX_TOOLWINDOW
	set := func(bit uintptr, on bool) {
		if on {
			style |= bit
		} else {
			style &^= bit
		}
	}
	set(WS_EX_TRANSPARENT, !flags.Touchable)
	set(WS_EX_NOACTIVATE, !flags.Focusable)
	set(WS_EX_TOPMOST, flags.AlwaysOnTop)
	return style
}

// applyNativeFlags finds the overlay by title and applies click-through,
// focus and topmost styles. Windows has a single topmost band, so both
// floating levels map to HWND_TOPMOST; the status level is also kept out
// of the taskbar. It returns false while the window does not exist yet.
func applyNativeFlags(title string, flags window.Flags, z zLevel) bool {
	t, err := syscall.UTF16PtrFromString(title)
	if err != nil {
		return false
	}
	hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(t)))
	if hwnd == 0 {
		return false
	}

	// GWL_EXSTYLE is -20; int32 avoids constant overflow
	gwlExStyle := int32(-20)
	current, _, _ := procGetWindowLongW.Call(hwnd, uintptr(gwlExStyle))
	style := exStyle(current, flags)
	if z != levelStatus {
		style &^= WS_EX_TOOLWINDOW
	}
	procSetWindowLongW.Call(hwnd, uintptr(gwlExStyle), style)

	// alpha comes from the content; the layer itself stays opaque
	procSetLayeredWindowAttributes.Call(hwnd, 0, 255, LWA_ALPHA)

	after := HWND_NOTOPMOST
	if z != levelNormal {
		after = HWND_TOPMOST
	}
	procSetWindowPos.Call(hwnd, after, 0, 0, 0, 0, SWP_NOMOVE|SWP_NOSIZE|SWP_NOACTIVATE|SWP_SHOWWINDOW)
	logger.Debug("native_windows: styles applied", "hwnd", hwnd, "flags", flags)
	return true
}
