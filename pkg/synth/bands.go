package synth

// Band is one entry of the VFO band table
type Band struct {
	Name        string
	FrequencyHz uint64
}

// VFOBands is the fixed band table; band numbers are 1-based indexes into it
var VFOBands = []Band{
	{"GEN", 100000},
	{"MW", 800000},
	{"160m", 1800000},
	{"80m", 3650000},
	{"60m", 4985000},
	{"49m", 6180000},
	{"40m", 7200000},
	{"31m", 10000000},
	{"25m", 11780000},
	{"22m", 13630000},
	{"20m", 14100000},
	{"19m", 15000000},
	{"16m", 17655000},
	{"13m", 21525000},
	{"11m", 27015000},
	{"10m", 28400000},
	{"6m", 50000000},
	{"WFM", 100000000},
	{"AIR", 130000000},
	{"2m", 144000000},
	{"1m", 220000000},
}

// VFOSteps is the step table cycled by CycleStep
var VFOSteps = []uint64{1, 10, 1000, 5000, 10000, 1000000}

// BandByNumber returns the band with 1-based number n
func BandByNumber(n int) (Band, bool) {
	if n < 1 || n > len(VFOBands) {
		return Band{}, false
	}
	return VFOBands[n-1], true
}
