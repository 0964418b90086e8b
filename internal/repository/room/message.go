package room

type Message struct {
	Id          string `json:"id"`
	RoomId      string `json:"room_id"`
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	IsHost      bool   `json:"is_host"`
	CreatedAt   int64  `json:"created_at"`
}

type AddMessageParams struct {
	Message Message
	// Number of most recent messages kept, zero keeps everything.
	Limit int
}
