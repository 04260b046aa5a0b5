package internal

import "encoding/json"

// MessageType tags every frame exchanged with a client. Adding a type means
// adding a case to the router's dispatch switch.
type MessageType string

const (
	TypeJoin         MessageType = "JOIN"
	TypeLeave        MessageType = "LEAVE"
	TypeReady        MessageType = "READY"
	TypeStart        MessageType = "START"
	TypeChat         MessageType = "CHAT"
	TypeDraw         MessageType = "DRAW"
	TypeGuess        MessageType = "GUESS"
	TypeCorrect      MessageType = "CORRECT"
	TypeTextSubmit   MessageType = "TEXT_SUBMIT"
	TypeRoundUpdate  MessageType = "ROUND_UPDATE"
	TypeFinalChain   MessageType = "FINAL_CHAIN"
	TypePlayerStatus MessageType = "PLAYER_STATUS"
	TypeError        MessageType = "ERROR"
)

// Message is the unit exchanged over a connection: one JSON object per frame.
// Payload is an opaque string whose structure depends on Type; PlayerID 0 and
// PlayerName "SERVER" mark server-originated messages.
type Message struct {
	Type       MessageType `json:"type"`
	RoomID     int         `json:"roomId"`
	PlayerID   int         `json:"playerId"`
	PlayerName string      `json:"playerName"`
	Payload    string      `json:"payload"`
}

// Error codes carried inside ERROR payloads. All are recoverable and are
// sent to the offending player only.
const (
	CodeBadRequest         = "400"
	CodeForbidden          = "403"
	CodeNotFound           = "404"
	CodePreconditionFailed = "412"
)

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StartPayload announces a round to every roster member.
type StartPayload struct {
	RoundDuration int    `json:"roundDuration"`
	TotalPlayers  int    `json:"totalPlayers"`
	Stage         string `json:"stage"`
}

// CorrectPayload announces a winning guess.
type CorrectPayload struct {
	CorrectPlayer string `json:"correctPlayer"`
	Word          string `json:"word"`
	Score         int    `json:"score"`
}

// RevealPayload ends a draw-and-guess round by disclosing the secret word.
type RevealPayload struct {
	Word string `json:"word"`
}

// ForwardPayload carries a telephone contribution to the next player in
// roster order.
type ForwardPayload struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
	RoundNumber int    `json:"roundNumber"`
}

// ChainLink is one entry of a finished telephone chain. Value holds the text
// itself for TEXT links and a base64 encoding of the blob for DRAW links.
type ChainLink struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// PlayerChain is one contributing player's complete ordered chain.
type PlayerChain struct {
	PlayerID   int         `json:"playerId"`
	PlayerName string      `json:"playerName"`
	Chain      []ChainLink `json:"chain"`
}

type FinalChainPayload struct {
	ContentType string        `json:"contentType"`
	Chains      []PlayerChain `json:"chains"`
}

// EncodePayload renders a structured payload into the opaque payload string.
func EncodePayload(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
