// Package wire holds the JSON shapes exchanged with the game server.
package wire

// Client -> Server (HTTP)
//   POST /player          {"name": string}
//   PUT  /player/{uid}    {"action": "BOMB" | "UP" | "DOWN" | "LEFT" | "RIGHT"}
//   DELETE /player/{uid}
//
// Server -> Client (HTTP)
//   GET /game             "<raw frame>" (a JSON string)
//   GET /player/{uid}     PlayerStatus
//
// Push channel (websocket, separate port)
//   first client message: bare uid
//   client messages:      bare command, e.g. BOMB
//   server messages:      PlayerStatus

type CreatePlayer struct {
	Name string `json:"name,omitempty"`
}

type Action struct {
	Action string `json:"action"`
}

// PlayerStatus is what the server reports for one player. Game carries the
// raw frame as seen by that player.
type PlayerStatus struct {
	UID      string `json:"uid"`
	Game     string `json:"game"`
	Coords   []int  `json:"coords,omitempty"`
	Number   *int   `json:"number"`
	Flame    int    `json:"flame"`
	Bomb     int    `json:"bomb"`
	Kills    int    `json:"kills"`
	Deaths   int    `json:"deaths"`
	Suicides int    `json:"suicides"`
	Name     string `json:"name,omitempty"`
}

// PlayerNumber is 0 while the player has not been spawned into the arena.
func (p PlayerStatus) PlayerNumber() int {
	if p.Number == nil {
		return 0
	}
	return *p.Number
}
