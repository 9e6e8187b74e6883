package core

import "hoplink/protocol"

// fakeRadio records calls for tests that do not need a medium
type fakeRadio struct {
	present   bool
	channel   uint8
	pipe      protocol.PipeAddress
	listening bool
	calls     []string
	ce        bool
}

func newFakeRadio() *fakeRadio {
	return &fakeRadio{present: true}
}

func (f *fakeRadio) Probe() bool { return f.present }

func (f *fakeRadio) SetChannel(ch uint8) error {
	f.channel = ch
	f.calls = append(f.calls, "channel")
	return nil
}

func (f *fakeRadio) OpenPipe(addr protocol.PipeAddress) error {
	f.pipe = addr
	f.calls = append(f.calls, "pipe")
	return nil
}

func (f *fakeRadio) StartListening() {
	f.listening = true
	f.calls = append(f.calls, "start")
}

func (f *fakeRadio) StopListening() {
	f.listening = false
	f.calls = append(f.calls, "stop")
}

func (f *fakeRadio) Available() bool                     { return false }
func (f *fakeRadio) Read(buf []byte) int                 { return 0 }
func (f *fakeRadio) WriteAck(payload []byte)             {}
func (f *fakeRadio) Write(payload []byte) ([]byte, bool) { return nil, false }

func (f *fakeRadio) Set(on bool) error {
	f.ce = on
	if on {
		f.calls = append(f.calls, "ce-high")
	} else {
		f.calls = append(f.calls, "ce-low")
	}
	return nil
}
