package domain

// RGB is an 8-bit red, green, blue triple.
type RGB [3]uint8

// Industry is the closed set of sectors the palette distinguishes. Every
// sector string that is not listed resolves to IndustryOther.
type Industry int

const (
	IndustryOther Industry = iota
	IndustryPetroleumAndGas
	IndustryPowerPlants
	IndustryWaste

	industryCount
)

// Sector names as they appear in the "Industry Type (sectors)" column.
const (
	SectorPetroleumAndGas = "Petroleum and Natural Gas Systems"
	SectorPowerPlants     = "Power Plants"
	SectorWaste           = "Waste"
	SectorOther           = "Other"
)

// ParseIndustry maps a sector string to an Industry. Matching is exact and
// case-sensitive; multi-sector strings such as "Petroleum and Natural Gas
// Systems,Waste" are not split and fall through to IndustryOther.
func ParseIndustry(sector string) Industry {
	switch sector {
	case SectorPetroleumAndGas:
		return IndustryPetroleumAndGas
	case SectorPowerPlants:
		return IndustryPowerPlants
	case SectorWaste:
		return IndustryWaste
	default:
		return IndustryOther
	}
}

func (i Industry) String() string {
	switch i {
	case IndustryPetroleumAndGas:
		return SectorPetroleumAndGas
	case IndustryPowerPlants:
		return SectorPowerPlants
	case IndustryWaste:
		return SectorWaste
	default:
		return SectorOther
	}
}

// Industries lists every variant in legend order, Other last.
func Industries() []Industry {
	return []Industry{IndustryPetroleumAndGas, IndustryPowerPlants, IndustryWaste, IndustryOther}
}

// Palette holds one fill colour per Industry.
type Palette struct {
	colors [industryCount]RGB
}

// DefaultPalette avoids red (danger) and blue (cold) associations.
var DefaultPalette = NewPalette(map[Industry]RGB{
	IndustryPetroleumAndGas: {129, 15, 124},
	IndustryPowerPlants:     {142, 154, 175},
	IndustryWaste:           {127, 85, 57},
	IndustryOther:           {113, 131, 85},
})

// NewPalette builds a palette from explicit colours. Variants missing from
// colors take the IndustryOther colour.
func NewPalette(colors map[Industry]RGB) Palette {
	var p Palette
	fallback := colors[IndustryOther]
	for i := range industryCount {
		c, ok := colors[i]
		if !ok {
			c = fallback
		}
		p.colors[i] = c
	}
	return p
}

// Color returns the colour for an industry. Out-of-range values use the
// Other colour.
func (p Palette) Color(i Industry) RGB {
	if i < 0 || i >= industryCount {
		return p.colors[IndustryOther]
	}
	return p.colors[i]
}

// Fallback is the colour used for unlisted sectors.
func (p Palette) Fallback() RGB {
	return p.colors[IndustryOther]
}

// LegendEntry pairs a sector label with its colour.
type LegendEntry struct {
	Industry string `json:"industry"`
	Color    RGB    `json:"color"`
}

// Legend returns the palette in legend order.
func (p Palette) Legend() []LegendEntry {
	out := make([]LegendEntry, 0, industryCount)
	for _, i := range Industries() {
		out = append(out, LegendEntry{Industry: i.String(), Color: p.Color(i)})
	}
	return out
}
