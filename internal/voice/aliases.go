package voice

import "github.com/elektrokombinacija/bci-robot-core/internal/core"

// transportVerbs covers the compound transport template's lead verb
// (spec §4.5 item 1).
var transportVerbs = map[string]bool{
	"take": true, "bring": true, "carry": true, "fetch": true,
	"move": true, "deliver": true, "transport": true,
}

// conjunctions are the fragment separators for multi-step splitting
// (spec §4.5 item 3). The split is made at the earliest one in the text;
// where two start at the same position the longer wins, so "and then"
// beats "and".
var conjunctions = []string{"and then", "after that", "afterwards", "then", "and"}

// directOverrides is the direct-override keyword table (spec §4.5 item
// 5). The caller checks entries in table order, and a phrase that
// contains a shorter one is listed before it, so "emergency stop" wins
// over "stop".
var directOverrides = []struct {
	phrase string
	action core.CommandAction
}{
	{"emergency stop", core.CmdEmergency},
	{"cancel nav", core.CmdCancelNav},
	{"cancel navigation", core.CmdCancelNav},
	{"backflip", core.CmdBackflip},
	{"move forward", core.CmdMoveForward},
	{"move backward", core.CmdMoveBack},
	{"move back", core.CmdMoveBack},
	{"turn left", core.CmdTurnLeft},
	{"turn right", core.CmdTurnRight},
	{"grab", core.CmdGrab},
	{"release", core.CmdRelease},
	{"stop", core.CmdStop},
}

// gearNames maps a spoken gear name to its Gear value, used by the
// "shift/set gear <name>" voice override (spec §4.5 item 5, SPEC_FULL
// §C.4).
var gearNames = map[string]core.Gear{
	"neutral":     core.GearNeutral,
	"forward":     core.GearForward,
	"reverse":     core.GearReverse,
	"orchestrate": core.GearOrchestrate,
}
