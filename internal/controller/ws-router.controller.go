package controller

import "github.com/sharetube/watchparty/pkg/wsrouter"

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())
	mux.OnError(c.handleWSError)

	wsrouter.Handle(mux, "alive", c.handleAlive)
	wsrouter.Handle(mux, "leave", c.handleLeave)
	// player
	wsrouter.Handle(mux, "sync_action", c.handleSyncAction)
	wsrouter.Handle(mux, "seek_action", c.handleSeekAction)
	wsrouter.Handle(mux, "request_sync", c.handleRequestSync)
	wsrouter.Handle(mux, "send_host_time", c.handleSendHostTime)
	wsrouter.Handle(mux, "poll_schedule", c.handlePollSchedule)
	// membership
	wsrouter.Handle(mux, "kick_user", c.handleKickUser)
	wsrouter.Handle(mux, "ban_user", c.handleBanUser)
	wsrouter.Handle(mux, "unban_user", c.handleUnbanUser)
	wsrouter.Handle(mux, "transfer_host", c.handleTransferHost)
	wsrouter.Handle(mux, "accept_join", c.handleAcceptJoin)
	wsrouter.Handle(mux, "reject_join", c.handleRejectJoin)
	wsrouter.Handle(mux, "end_room", c.handleEndRoom)
	// chat
	wsrouter.Handle(mux, "send_message", c.handleSendMessage)

	return mux
}
