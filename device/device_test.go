package device

import "testing"

func TestDefaultsRoundTrip(t *testing.T) {
	defer func() {
		SetAudioOutput("")
		SetAudioInput("")
		SetVideoInput("")
	}()

	if d := Current(); d != (Defaults{}) {
		t.Fatalf("expected zero-value defaults, got %+v", d)
	}

	SetAudioOutput("speaker-1")
	SetAudioInput("mic-2")
	SetVideoInput("cam-3")

	got := Current()
	want := Defaults{AudioOutputID: "speaker-1", AudioInputID: "mic-2", VideoInputID: "cam-3"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
