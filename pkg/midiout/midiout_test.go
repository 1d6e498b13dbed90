package midiout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// fakeOut implements drivers.Out for testing
type fakeOut struct {
	number int
	name   string
	open   bool
	sent   [][]byte
}

func (f *fakeOut) Open() error             { f.open = true; return nil }
func (f *fakeOut) Close() error            { f.open = false; return nil }
func (f *fakeOut) IsOpen() bool            { return f.open }
func (f *fakeOut) Number() int             { return f.number }
func (f *fakeOut) String() string          { return f.name }
func (f *fakeOut) Underlying() interface{} { return nil }
func (f *fakeOut) Send(data []byte) error {
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func testPorts() []drivers.Out {
	return []drivers.Out{
		&fakeOut{number: 0, name: "Midi Through Port-0"},
		&fakeOut{number: 1, name: "IAC Driver Bus 1"},
		&fakeOut{number: 2, name: "TR-8S MIDI 1"},
	}
}

func TestFindPort(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"1", "IAC Driver Bus 1"},
		{"TR-8S MIDI 1", "TR-8S MIDI 1"},
		{"tr-8s", "TR-8S MIDI 1"},
		{"through", "Midi Through Port-0"},
		{"  iac  ", "IAC Driver Bus 1"},
	}

	ports := testPorts()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := FindPort(ports, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFindPortMissing(t *testing.T) {
	for _, q := range []string{"", "launchpad", "7"} {
		_, err := FindPort(testPorts(), q)
		assert.True(t, errors.Is(err, ErrNoSuchPort), "FindPort(%q) error = %v", q, err)
	}
}

func TestPortSendsChannelMessages(t *testing.T) {
	out := &fakeOut{name: "fake"}
	p, err := NewPort(out)
	require.NoError(t, err)
	assert.True(t, out.open, "NewPort should open the port")
	assert.True(t, p.Ready())
	assert.Equal(t, "fake", p.Name())

	require.NoError(t, p.NoteOn(36, 100, 9))
	require.NoError(t, p.NoteOff(36, 9))

	require.Len(t, out.sent, 2)
	assert.Equal(t, []byte{0x99, 36, 100}, out.sent[0])
	assert.Equal(t, byte(0x89), out.sent[1][0])
	assert.Equal(t, byte(36), out.sent[1][1])

	require.NoError(t, p.Close())
	assert.False(t, p.Ready())
	assert.Error(t, p.NoteOn(36, 100, 9))
	require.NoError(t, p.Close())
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	assert.True(t, r.Ready())

	require.NoError(t, r.NoteOn(38, 90, 9))
	require.NoError(t, r.NoteOff(38, 9))

	assert.Equal(t, []Event{
		{Kind: KindNoteOn, Channel: 9, Note: 38, Velocity: 90},
		{Kind: KindNoteOff, Channel: 9, Note: 38},
	}, r.Events())
	assert.Len(t, r.Messages(), 2)

	r.SetReady(false)
	assert.False(t, r.Ready())

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "note-on", KindNoteOn.String())
	assert.Equal(t, "note-off", KindNoteOff.String())
}
