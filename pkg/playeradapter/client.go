package playeradapter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Client is a websocket Transport connected to one room.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// RoomURL builds the websocket url of a room from the server base url.
func RoomURL(serverURL, roomId, authToken, code string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse server url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v1/ws/rooms/" + url.PathEscape(roomId)
	query := url.Values{"auth-token": {authToken}}
	if code != "" {
		query.Set("code", code)
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func Dial(ctx context.Context, serverURL, roomId, authToken, code string) (*Client, error) {
	u, err := RoomURL(serverURL, roomId, authToken, code)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial room: %w", err)
	}

	return &Client{conn: conn}, nil
}

func (c *Client) Send(ctx context.Context, messageType string, payload any) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	return c.conn.WriteJSON(map[string]any{"type": messageType, "payload": payload})
}

// Run feeds server events to a until the connection closes or ctx is done.
// A close sent by the server is returned as *websocket.CloseError.
func (c *Client) Run(ctx context.Context, a *Adapter) error {
	stop := context.AfterFunc(ctx, func() {
		c.conn.Close()
	})
	defer stop()

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if err := a.Handle(ctx, msg); err != nil {
			a.logger.Warn("failed to handle event", "type", msg.Type, "error", err)
		}
	}
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()

	return errors.Join(err, c.conn.Close())
}
