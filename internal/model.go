package internal

import "fmt"

const DefaultRoundSeconds = 60

// GameMode selects the room's game variant. Immutable once the room exists;
// the first JOIN that creates the room decides it.
type GameMode string

const (
	ModeGuessDrawing GameMode = "GUESS_DRAWING"
	ModeTelephone    GameMode = "TELEPHONE"
)

func ParseGameMode(s string) (GameMode, error) {
	switch GameMode(s) {
	case ModeGuessDrawing, ModeTelephone:
		return GameMode(s), nil
	}
	return "", fmt.Errorf("unknown game mode: %q", s)
}

// MinPlayers is the roster size required before a round may start.
func (m GameMode) MinPlayers() int {
	if m == ModeTelephone {
		return 4
	}
	return 2
}

// StageLabel names the opening stage announced in the START payload.
func (m GameMode) StageLabel() string {
	if m == ModeTelephone {
		return "TEXT_SUBMIT"
	}
	return "DRAW"
}

// StepType tags a single telephone-chain contribution.
type StepType string

const (
	StepText StepType = "TEXT"
	StepDraw StepType = "DRAW"
)

// ChainStep is one immutable contribution in a telephone chain, either a
// text string or an opaque drawing blob.
type ChainStep struct {
	Type    StepType
	Text    string
	Drawing []byte
}

func TextStep(text string) ChainStep {
	return ChainStep{Type: StepText, Text: text}
}

func DrawStep(blob []byte) ChainStep {
	return ChainStep{Type: StepDraw, Drawing: blob}
}
