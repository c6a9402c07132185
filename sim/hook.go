package sim

// HookPos defines the enum of possible hooking positions
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable defines an object that accept Hooks
type Hookable interface {
	// AcceptHook registers a hook
	AcceptHook(hook Hook)
}

// HookPosBeforeTick is a hook position that triggers before a tick starts.
// The Item is the number of ticks completed so far.
var HookPosBeforeTick = &HookPos{Name: "BeforeTick"}

// HookPosAfterTick is a hook position that triggers after both phases of a
// tick are complete. The Item is the number of ticks completed, including the
// current one.
var HookPosAfterTick = &HookPos{Name: "AfterTick"}

// HookPosSignalChange triggers when a road's signal flips. The Item is the
// *Road and the Detail is a SignalChange.
var HookPosSignalChange = &HookPos{Name: "SignalChange"}

// HookPosCrossing triggers when a vehicle is credited with a crossing. The Item
// is the *Vehicle and the Detail is its *Road.
var HookPosCrossing = &HookPos{Name: "Crossing"}

// HookPosLap triggers once per tick for a vehicle that wraps past the end of
// its road. The Item is the *Vehicle and the Detail is a Lap.
var HookPosLap = &HookPos{Name: "Lap"}

// Lap is the detail of HookPosLap. Count is the number of wraps in the tick,
// which is more than one when a vehicle moves farther than the road length.
type Lap struct {
	Road  *Road
	Count uint64
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
type HookableBase struct {
	Hooks []Hook
}

// NewHookableBase creates a HookableBase object
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.Hooks = make([]Hook, 0)
	return h
}

// AcceptHook register a hook
func (h *HookableBase) AcceptHook(hook Hook) {
	h.Hooks = append(h.Hooks, hook)
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.Hooks)
}

// InvokeHook triggers the register Hooks
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks {
		hook.Func(ctx)
	}
}
