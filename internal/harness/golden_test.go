package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Marshal(t *testing.T) {
	r := NewResult()
	r.Screens = []ScreenChange{{Screen: "loading"}}
	r.record(KindReceive, "RestoredState", "first_run")
	r.Flow = "first_run"

	data, err := NewSnapshot("splash", r).Marshal()
	require.NoError(t, err)
	assert.Equal(t, `{
  "scenario": "splash",
  "screens": [
    {
      "screen": "loading"
    },
    {
      "action": "RestoredState",
      "screen": "first_run"
    }
  ],
  "flow": "first_run"
}
`, string(data))
}

func TestResult_Record(t *testing.T) {
	r := NewResult()
	r.record(KindSend, "OSFinishedLaunching", "loading")
	r.record(KindReceive, "RestoredState", "first_run")
	r.record(KindReceive, "sdklaunch.Launch", "first_run")

	assert.Equal(t, []int{1, 2, 3}, []int{r.Trace[0].Seq, r.Trace[1].Seq, r.Trace[2].Seq})
	assert.Equal(t, []string{"loading", "first_run"}, r.ScreenNames())
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
