package cli

import (
	"encoding/json"
	"fmt"
	"os"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printHealthResult(v)
	case RoomList:
		o.printRoomList(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
	Game   string `json:"game"`
}

// RoomSummary response type (matches API)
type RoomSummary struct {
	ID          string `json:"id"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	DigitLength int    `json:"digitLength"`
	HostName    string `json:"hostName"`
}

// RoomList response type
type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Game: %s\n", h.Game)
}

func (o *Output) printRoomList(l RoomList) {
	if len(l.Rooms) == 0 {
		fmt.Println("No rooms waiting for players")
		return
	}
	fmt.Printf("Rooms (%d):\n", len(l.Rooms))
	for _, r := range l.Rooms {
		fmt.Printf("  - %s  host=%s  players=%d/%d  digits=%d\n",
			r.ID, r.HostName, r.PlayerCount, r.MaxPlayers, r.DigitLength)
	}
}
