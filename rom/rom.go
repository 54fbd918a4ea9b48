// Package rom loads cartridge images: the iNES format NES ROMs ship in,
// and the raw load-address-prefixed PRG format C64 programs use. Only
// mapper 0 (NROM) is supported — bank switching is out of scope (§1
// Non-goals).
package rom

import "github.com/pkg/errors"

const iNESMagic = "NES\x1a"

// Mirroring names the NES nametable mirroring mode declared in the header.
type Mirroring int

const (
	MirrorHorizontal Mirroring = iota
	MirrorVertical
	MirrorFourScreen
)

// NESImage is a parsed iNES file: header fields plus the raw PRG and CHR
// banks.
type NESImage struct {
	PRGUnits  int
	CHRUnits  int
	Mapper    int
	Mirroring Mirroring
	PRG       []byte
	CHR       []byte
}

// LoadNES parses raw as an iNES ROM image. Only mapper 0 is accepted; any
// other mapper number is a structural error, since this package has no
// bank-switching logic to honor it (§1 Non-goals, §7 Structural errors).
func LoadNES(raw []byte) (*NESImage, error) {
	if len(raw) < 16 || string(raw[:4]) != iNESMagic {
		return nil, errors.New("rom: not an iNES image (bad magic)")
	}
	prgUnits := int(raw[4])
	chrUnits := int(raw[5])
	flags6 := raw[6]
	flags7 := raw[7]

	mapper := int(flags6>>4) | int(flags7&0xF0)
	if mapper != 0 {
		return nil, errors.Errorf("rom: mapper %d not supported (only NROM/mapper 0)", mapper)
	}

	mirroring := MirrorHorizontal
	if flags6&0x08 != 0 {
		mirroring = MirrorFourScreen
	} else if flags6&0x01 != 0 {
		mirroring = MirrorVertical
	}

	offset := 16
	if flags6&0x04 != 0 {
		offset += 512 // trainer present
	}

	prgSize := prgUnits * 16384
	chrSize := chrUnits * 8192
	if offset+prgSize+chrSize > len(raw) {
		return nil, errors.New("rom: truncated iNES image")
	}

	img := &NESImage{
		PRGUnits:  prgUnits,
		CHRUnits:  chrUnits,
		Mapper:    mapper,
		Mirroring: mirroring,
		PRG:       raw[offset : offset+prgSize],
	}
	if chrSize > 0 {
		img.CHR = raw[offset+prgSize : offset+prgSize+chrSize]
	}
	return img, nil
}

// C64Image is a parsed raw PRG file: a two-byte little-endian load address
// followed by the program bytes.
type C64Image struct {
	LoadAddress uint16
	Data        []byte
}

// LoadC64 parses raw as a .prg file.
func LoadC64(raw []byte) (*C64Image, error) {
	if len(raw) < 2 {
		return nil, errors.New("rom: PRG file too short to contain a load address")
	}
	return &C64Image{
		LoadAddress: uint16(raw[0]) | uint16(raw[1])<<8,
		Data:        raw[2:],
	}, nil
}
