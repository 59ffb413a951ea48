package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleOut struct {
	Strategy string              `json:"strategy"`
	Rows     []map[string]string `json:"rows"`
	Score    float64             `json:"score"`
}

func TestByName(t *testing.T) {
	c, ok := ByName("json")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	c, ok = ByName("")
	require.True(t, ok)
	assert.Equal(t, "go-json", c.Name())

	_, ok = ByName("msgpack")
	assert.False(t, ok)
}

func TestWrite(t *testing.T) {
	v := sampleOut{Strategy: "fast", Rows: []map[string]string{{"state": "GA"}}, Score: 0.5}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			var compact, pretty bytes.Buffer
			require.NoError(t, Write(&compact, c, v, false))
			require.NoError(t, Write(&pretty, c, v, true))

			assert.Equal(t, `{"strategy":"fast","rows":[{"state":"GA"}],"score":0.5}`+"\n", compact.String())
			assert.Contains(t, pretty.String(), "\n  \"strategy\": \"fast\"")

			var back sampleOut
			require.NoError(t, c.Unmarshal(compact.Bytes(), &back))
			assert.Equal(t, v, back)
		})
	}
}

func TestWrite_Error(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, nil, make(chan int), false)
	assert.ErrorContains(t, err, "go-json")
	assert.Panics(t, func() { MustMarshal(JSON{}, make(chan int)) })
}
