package mode

// Multipliers lists the supported CPU frequency multipliers.
var Multipliers = [...]int{1, 2, 4, 8, 16, 32, 64, 128}

// Delay is the number of governor spins applied on opcode fetches from local
// ROM and local RAM.
type Delay struct {
	ROM, RAM int
}

type delayTable struct {
	rom, ram [len(Multipliers)]int
}

var governorTables = [...]delayTable{
	MZ80A: {
		rom: [...]int{436, 218, 109, 54, 27, 14, 7, 3},
		ram: [...]int{420, 210, 105, 52, 26, 13, 7, 0},
	},
	MZ700: {
		rom: [...]int{253, 126, 63, 32, 16, 8, 4, 1},
		ram: [...]int{253, 126, 63, 32, 16, 8, 4, 1},
	},
	MZ2000: {
		rom: [...]int{243, 122, 61, 30, 15, 7, 3, 1},
		ram: [...]int{218, 112, 56, 28, 14, 7, 3, 1},
	},
}

// Governor returns the delay pair of the board for mult. ok is false if mult
// is not one of Multipliers, in which case the x1 pair is returned.
func (b Board) Governor(mult int) (d Delay, ok bool) {
	if int(b) >= len(governorTables) {
		return Delay{}, false
	}
	tbl := &governorTables[b]
	for i, m := range Multipliers {
		if m == mult {
			return Delay{ROM: tbl.rom[i], RAM: tbl.ram[i]}, true
		}
	}
	return Delay{ROM: tbl.rom[0], RAM: tbl.ram[0]}, false
}
