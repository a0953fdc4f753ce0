package program

import (
	"encoding/binary"
	"fmt"

	"github.com/lookbusy1344/armv6m-stackdepth/cumulative"
	"github.com/lookbusy1344/armv6m-stackdepth/entrypoint"
	"github.com/lookbusy1344/armv6m-stackdepth/image"
	"github.com/lookbusy1344/armv6m-stackdepth/internal/cfg"
	"github.com/lookbusy1344/armv6m-stackdepth/isa"
)

type vectorEntry struct {
	index int
	addr  isa.Address
}

func decodeVectorEntries(vecTable []byte) ([]vectorEntry, []string, error) {
	var out []vectorEntry
	var warnings []string
	n := len(vecTable) / 4
	for i := 1; i < n; i++ {
		raw := binary.LittleEndian.Uint32(vecTable[i*4:])
		if raw == 0 {
			continue
		}
		if raw&1 == 0 {
			return nil, nil, fmt.Errorf("program: vector table entry %d (0x%x) does not have the Thumb bit set", i, raw)
		}
		addr, err := isa.NewAddress(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("program: %w", err)
		}
		if _, known := exceptionName[i]; i < 16 && !known {
			warnings = append(warnings, fmt.Sprintf("vector table entry %d is a reserved core-exception slot but is populated", i))
		}
		out = append(out, vectorEntry{index: i, addr: addr})
	}
	return out, warnings, nil
}

// resolveDefaultHandler finds the default-handler function address per
// config.Entrypoints.DefaultHandler, which may name an address, a
// function name, request autodetection (true), or be disabled (false).
func resolveDefaultHandler(dh *cfg.DefaultHandler, byAddr map[isa.Address]*Function, candidates []isa.Address) (isa.Address, bool) {
	if dh == nil || dh.Auto {
		if len(candidates) == 1 {
			return candidates[0], true
		}
		return 0, false
	}
	if dh.Disabled {
		return 0, false
	}
	if dh.Address != nil {
		if addr, err := isa.NewAddress(*dh.Address); err == nil {
			return addr, true
		}
		return 0, false
	}
	if dh.Name != nil {
		for addr, f := range byAddr {
			for _, n := range f.Names {
				if n == *dh.Name {
					return addr, true
				}
			}
		}
	}
	return 0, false
}

// exceptionDisposition reports whether ec explicitly disables the
// exception, and if not, its known priority group (ok=false means
// "enabled but priority unknown", i.e. worst-case).
func exceptionDisposition(ec *cfg.ExceptionConfig) (disabled bool, group int, ok bool) {
	if ec == nil {
		return false, 0, false
	}
	if ec.Enabled != nil && !*ec.Enabled {
		return true, 0, false
	}
	if ec.PriorityGroup != nil {
		return false, *ec.PriorityGroup, true
	}
	return false, 0, false
}

func buildEntrypoints(img *image.Image, cum cumulative.Result, config *cfg.Config, byAddr map[isa.Address]*Function) (entrypoint.Program, []string, error) {
	entries, warnings, err := decodeVectorEntries(img.VectorTable)
	if err != nil {
		return entrypoint.Program{}, nil, err
	}

	defaultHandler, haveDefault := resolveDefaultHandler(config.Entrypoints.DefaultHandler, byAddr, img.DefaultHandlerCandidates)

	cumulativeFor := func(addr isa.Address) uint32 {
		return cum.Cumulative[addr]
	}

	isDefault := func(addr isa.Address) bool { return haveDefault && addr == defaultHandler }

	var raws []entrypoint.Raw
	seenIndex := map[int]isa.Address{}
	for _, e := range entries {
		seenIndex[e.index] = e.addr
	}

	// Reset (mandatory) — no exception frame overhead.
	if addr, ok := seenIndex[1]; ok {
		raws = append(raws, entrypoint.Raw{Name: "Reset", CumulativeStack: cumulativeFor(addr), IsReset: true, NonConfigurable: true})
	} else {
		return entrypoint.Program{}, nil, fmt.Errorf("program: vector table has no Reset entry (index 1)")
	}

	// HardFault (mandatory).
	if addr, ok := seenIndex[3]; ok {
		raws = append(raws, entrypoint.Raw{Name: "HardFault", CumulativeStack: cumulativeFor(addr), NonConfigurable: true})
	} else {
		return entrypoint.Program{}, nil, fmt.Errorf("program: vector table has no HardFault entry (index 3)")
	}

	// NMI (optional, unconditional priority: always its own singleton).
	if addr, ok := seenIndex[2]; ok {
		if config.Entrypoints.NMI != nil && !*config.Entrypoints.NMI {
			warnings = append(warnings, "NMI vector is populated but disabled in config")
		} else if isDefault(addr) {
			warnings = append(warnings, "NMI points at the default handler (appears unused)")
		} else {
			raws = append(raws, entrypoint.Raw{Name: "NMI", CumulativeStack: cumulativeFor(addr), NonConfigurable: true})
		}
	}

	// SVCall/PendSV/SysTick (optional, configurable priority).
	configurable := []struct {
		index  int
		name   string
		config *cfg.ExceptionConfig
	}{
		{11, "SVCall", config.Entrypoints.SVCall},
		{14, "PendSV", config.Entrypoints.PendSV},
		{15, "SysTick", config.Entrypoints.SysTick},
	}
	for _, c := range configurable {
		addr, ok := seenIndex[c.index]
		if !ok {
			continue
		}
		if isDefault(addr) {
			warnings = append(warnings, fmt.Sprintf("%s points at the default handler (appears unused)", c.name))
			continue
		}
		disabled, group, known := exceptionDisposition(c.config)
		if disabled {
			warnings = append(warnings, fmt.Sprintf("%s vector is populated but disabled in config", c.name))
			continue
		}
		if !known {
			warnings = append(warnings, fmt.Sprintf("%s has no configured priority group; worst-case preemption assumed", c.name))
			group = -1
		}
		raws = append(raws, entrypoint.Raw{Name: c.name, CumulativeStack: cumulativeFor(addr), PriorityGroup: group})
	}

	// External interrupts.
	interruptConfigByNumber := map[int]cfg.InterruptConfig{}
	for _, ic := range config.Entrypoints.Interrupts {
		interruptConfigByNumber[ic.Number] = ic
	}
	for _, e := range entries {
		if e.index < 16 {
			continue
		}
		number := e.index - 16
		if isDefault(e.addr) {
			continue
		}
		name := fmt.Sprintf("IRQ%d", number)
		group := -1
		if ic, ok := interruptConfigByNumber[number]; ok {
			if ic.Name != "" {
				name = ic.Name
			}
			disabled, g, known := exceptionDisposition(ic.Config)
			if disabled {
				warnings = append(warnings, fmt.Sprintf("%s is populated but disabled in config", name))
				continue
			}
			if known {
				group = g
			} else {
				warnings = append(warnings, fmt.Sprintf("%s has no configured priority group; worst-case preemption assumed", name))
			}
		} else {
			warnings = append(warnings, fmt.Sprintf("%s has no configured priority group; worst-case preemption assumed", name))
		}
		raws = append(raws, entrypoint.Raw{Name: name, CumulativeStack: cumulativeFor(e.addr), PriorityGroup: group})
	}

	if !haveDefault && config.Entrypoints.DefaultHandler != nil && config.Entrypoints.DefaultHandler.Auto {
		warnings = append(warnings, "default_handler autodetect requested but no unambiguous candidate found")
	}

	return entrypoint.Aggregate(raws), warnings, nil
}
