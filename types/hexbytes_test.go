package types

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestHexBytesJSON(t *testing.T) {
	c := qt.New(t)
	hb := HexBytes{0x01, 0xab, 0xff}
	data, err := json.Marshal(map[string]HexBytes{"v": hb})
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `{"v":"01abff"}`)

	var out map[string]HexBytes
	c.Assert(json.Unmarshal(data, &out), qt.IsNil)
	c.Assert(out["v"], qt.DeepEquals, hb)

	var prefixed HexBytes
	c.Assert(json.Unmarshal([]byte(`"0x01abff"`), &prefixed), qt.IsNil)
	c.Assert(prefixed, qt.DeepEquals, hb)

	c.Assert(json.Unmarshal([]byte(`"zz"`), &prefixed), qt.IsNotNil)
}
