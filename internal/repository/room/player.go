package room

type Player struct {
	CurrentTime float64 `redis:"current_time"`
	IsPlaying   bool    `redis:"is_playing"`
	UpdatedAt   int64   `redis:"updated_at"`
}

type SetPlayerParams struct {
	RoomId      string
	CurrentTime float64
	IsPlaying   bool
	UpdatedAt   int64
}
