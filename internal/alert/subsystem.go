package alert

import "fmt"

// Subsystem identifies the component that raised an alert (bits 30..24).
type Subsystem uint8

// Subsystem IDs as assigned in exec/alerts.h.
const (
	SubsystemCPU        Subsystem = 0x00
	SubsystemExec       Subsystem = 0x01
	SubsystemGraphics   Subsystem = 0x02
	SubsystemLayers     Subsystem = 0x03
	SubsystemIntuition  Subsystem = 0x04
	SubsystemMath       Subsystem = 0x05
	SubsystemCList      Subsystem = 0x06
	SubsystemDOS        Subsystem = 0x07
	SubsystemRAMLib     Subsystem = 0x08
	SubsystemIcon       Subsystem = 0x09
	SubsystemExpansion  Subsystem = 0x0A
	SubsystemDiskfont   Subsystem = 0x0B
	SubsystemUtility    Subsystem = 0x0C
	SubsystemKeymap     Subsystem = 0x0D
	SubsystemAudio      Subsystem = 0x10
	SubsystemConsole    Subsystem = 0x11
	SubsystemGamePort   Subsystem = 0x12
	SubsystemKeyboard   Subsystem = 0x13
	SubsystemTrackDisk  Subsystem = 0x14
	SubsystemTimer      Subsystem = 0x15
	SubsystemCIA        Subsystem = 0x20
	SubsystemDiskRsrc   Subsystem = 0x21
	SubsystemMiscRsrc   Subsystem = 0x22
	SubsystemBootStrap  Subsystem = 0x30
	SubsystemWorkbench  Subsystem = 0x31
	SubsystemDiskCopy   Subsystem = 0x32
	SubsystemGadTools   Subsystem = 0x33
	SubsystemUnknownLib Subsystem = 0x35
)

var subsystemNames = map[Subsystem]string{
	SubsystemCPU:        "CPU",
	SubsystemExec:       "exec.library",
	SubsystemGraphics:   "graphics.library",
	SubsystemLayers:     "layers.library",
	SubsystemIntuition:  "intuition.library",
	SubsystemMath:       "math.library",
	SubsystemCList:      "clist.library",
	SubsystemDOS:        "dos.library",
	SubsystemRAMLib:     "ramlib",
	SubsystemIcon:       "icon.library",
	SubsystemExpansion:  "expansion.library",
	SubsystemDiskfont:   "diskfont.library",
	SubsystemUtility:    "utility.library",
	SubsystemKeymap:     "keymap.library",
	SubsystemAudio:      "audio.device",
	SubsystemConsole:    "console.device",
	SubsystemGamePort:   "gameport.device",
	SubsystemKeyboard:   "keyboard.device",
	SubsystemTrackDisk:  "trackdisk.device",
	SubsystemTimer:      "timer.device",
	SubsystemCIA:        "cia.resource",
	SubsystemDiskRsrc:   "disk.resource",
	SubsystemMiscRsrc:   "misc.resource",
	SubsystemBootStrap:  "bootstrap",
	SubsystemWorkbench:  "workbench",
	SubsystemDiskCopy:   "diskcopy",
	SubsystemGadTools:   "gadtools.library",
	SubsystemUnknownLib: "unknown library",
}

// Name returns the subsystem's name, or a hex placeholder for IDs with no name.
func (s Subsystem) Name() string {
	if name, ok := subsystemNames[s]; ok {
		return name
	}
	return fmt.Sprintf("subsystem 0x%02X", uint8(s))
}

// String implements fmt.Stringer.
func (s Subsystem) String() string {
	return s.Name()
}

// Subsystems returns the named subsystems in ID order.
func Subsystems() []Subsystem {
	out := make([]Subsystem, 0, len(subsystemNames))
	for id := 0; id <= 0x7F; id++ {
		if _, ok := subsystemNames[Subsystem(id)]; ok {
			out = append(out, Subsystem(id))
		}
	}
	return out
}

// ParseSubsystem resolves a subsystem by name, e.g. "dos.library".
func ParseSubsystem(name string) (Subsystem, bool) {
	for id, n := range subsystemNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// General is the general error class (bits 23..16).
type General uint8

// General error classes as assigned in exec/alerts.h.
const (
	GeneralNone       General = 0x00
	GeneralNoMemory   General = 0x01
	GeneralMakeLib    General = 0x02
	GeneralOpenLib    General = 0x03
	GeneralOpenDev    General = 0x04
	GeneralOpenRes    General = 0x05
	GeneralIOError    General = 0x06
	GeneralNoSignal   General = 0x07
	GeneralBadParm    General = 0x08
	GeneralCloseLib   General = 0x09
	GeneralCloseDev   General = 0x0A
	GeneralProcCreate General = 0x0B
)

var generalNames = map[General]string{
	GeneralNone:       "",
	GeneralNoMemory:   "out of memory",
	GeneralMakeLib:    "MakeLibrary failed",
	GeneralOpenLib:    "OpenLibrary failed",
	GeneralOpenDev:    "OpenDevice failed",
	GeneralOpenRes:    "OpenResource failed",
	GeneralIOError:    "I/O error",
	GeneralNoSignal:   "no signal available",
	GeneralBadParm:    "bad parameter",
	GeneralCloseLib:   "CloseLibrary failed",
	GeneralCloseDev:   "CloseDevice failed",
	GeneralProcCreate: "process creation failed",
}

// Name returns the class name; the empty string for "no general class".
func (g General) Name() string {
	if name, ok := generalNames[g]; ok {
		return name
	}
	return fmt.Sprintf("general 0x%02X", uint8(g))
}

// String implements fmt.Stringer.
func (g General) String() string {
	return g.Name()
}

// Subsystem returns bits 30..24 of c.
func (c Code) Subsystem() Subsystem {
	return Subsystem((c >> 24) & 0x7F)
}

// General returns bits 23..16 of c.
func (c Code) General() General {
	return General((c >> 16) & 0xFF)
}
