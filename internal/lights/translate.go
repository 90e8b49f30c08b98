package lights

const rgbMask = 0x00ffffff

// IsLit reports whether the state requests any illumination.
func IsLit(s State) bool {
	return s.Color&rgbMask != 0
}

// Brightness converts the color to an 8-bit luma value.
func Brightness(s State) int {
	c := s.Color & rgbMask
	r := int((c >> 16) & 0xff)
	g := int((c >> 8) & 0xff)
	b := int(c & 0xff)
	return (77*r + 150*g + 29*b) >> 8
}
