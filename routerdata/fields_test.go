package routerdata

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

var hexToIntTests = []struct {
	s      string
	expect int64
}{
	{"0", 0},
	{"1", 1},
	{"ffff", 65535},
	{"9a02", 39426},
	{"7fffff", 8388607},
	{"800000", -8388608},
	{"ffffa128", -24280},
	{"ffffa560", -23200},
	{"ffffff69", -151},
	{"00000001", 1},
	{"ffffffffffffffff", -1},
	{"bogus", 0},
	{"", 0},
}

func TestHexToInt(t *testing.T) {
	c := qt.New(t)
	for _, test := range hexToIntTests {
		c.Run(test.s, func(c *qt.C) {
			c.Assert(hexToInt(test.s), qt.Equals, test.expect)
		})
	}
}

func TestSplitFieldNormalisesDecimalCommas(t *testing.T) {
	c := qt.New(t)
	c.Assert(splitField("-49,6;-0,6;69; 0"), qt.DeepEquals, []string{"-49.6", "-0.6", "69", " 0"})
}

func TestTokOutOfRange(t *testing.T) {
	c := qt.New(t)
	vals := []string{"a", "b"}
	c.Assert(tok(vals, 1), qt.Equals, "b")
	c.Assert(tok(vals, 2), qt.Equals, "")
	c.Assert(tok(vals, -1), qt.Equals, "")
}
