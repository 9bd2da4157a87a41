package chat

import "encoding/json"

// Message represents a Minecraft JSON chat component.
type Message struct {
	Text          string    `json:"text"`
	Bold          bool      `json:"bold,omitempty"`
	Italic        bool      `json:"italic,omitempty"`
	Underlined    bool      `json:"underlined,omitempty"`
	Strikethrough bool      `json:"strikethrough,omitempty"`
	Obfuscated    bool      `json:"obfuscated,omitempty"`
	Color         string    `json:"color,omitempty"`
	Extra         []Message `json:"extra,omitempty"`
}

// String serializes the message to JSON.
func (m Message) String() string {
	b, _ := json.Marshal(m)
	return string(b)
}

// Text creates a simple text message.
func Text(text string) Message {
	return Message{Text: text}
}

// Colored creates a colored text message.
func Colored(text, color string) Message {
	return Message{Text: text, Color: color}
}

// Status is the server-list status document sent in response to a status
// request.
type Status struct {
	Version     StatusVersion `json:"version"`
	Players     StatusPlayers `json:"players"`
	Description Message       `json:"description"`
}

// StatusVersion names the game version and protocol number.
type StatusVersion struct {
	Name     string `json:"name"`
	Protocol int32  `json:"protocol"`
}

// StatusPlayers reports player counts.
type StatusPlayers struct {
	Max    int32 `json:"max"`
	Online int32 `json:"online"`
}

// String serializes the status document to JSON.
func (s Status) String() string {
	b, _ := json.Marshal(s)
	return string(b)
}
