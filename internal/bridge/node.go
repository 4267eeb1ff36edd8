// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"context"
	"net/http"

	"github.com/ManuGH/sonox/internal/zone"
)

// Command names understood by the bridge under /players/{room}/.
const (
	CmdSource     = "source"
	CmdVolume     = "volume"
	CmdPlay       = "play"
	CmdPause      = "pause"
	CmdStandalone = "standalone"
	CmdSeek       = "seek"
	CmdRepeat     = "repeat"
	CmdFavorite   = "favorite"
	CmdPlaylist   = "playlist"
)

// SourceBody is the body of the source command.
type SourceBody struct {
	URI      string `json:"uri"`
	Metadata string `json:"metadata,omitempty"`
}

// VolumeBody is the body of the volume command.
type VolumeBody struct {
	Level int `json:"level"`
}

// SeekBody is the body of the seek command.
type SeekBody struct {
	TrackNo     int `json:"trackNo"`
	ElapsedTime int `json:"elapsedTime"`
}

// RepeatBody is the body of the repeat command.
type RepeatBody struct {
	Mode zone.RepeatMode `json:"mode"`
}

// NameBody is the body of the favorite and playlist commands.
type NameBody struct {
	Name string `json:"name"`
}

type node struct {
	c    *Client
	info zone.NodeInfo
}

func (n *node) Info() zone.NodeInfo { return n.info }

func (n *node) command(ctx context.Context, cmd string, body any) error {
	if body == nil {
		body = struct{}{}
	}
	room := n.info.RoomName
	return n.c.do(ctx, cmd, room, http.MethodPost, playerPath(room, cmd), body, nil, false)
}

func (n *node) SetSourceURI(ctx context.Context, uri, metadata string) error {
	return n.command(ctx, CmdSource, SourceBody{URI: uri, Metadata: metadata})
}

func (n *node) SetVolume(ctx context.Context, level int) error {
	return n.command(ctx, CmdVolume, VolumeBody{Level: level})
}

func (n *node) Play(ctx context.Context) error {
	return n.command(ctx, CmdPlay, nil)
}

func (n *node) Pause(ctx context.Context) error {
	return n.command(ctx, CmdPause, nil)
}

func (n *node) BecomeStandaloneCoordinator(ctx context.Context) error {
	return n.command(ctx, CmdStandalone, nil)
}

func (n *node) Seek(ctx context.Context, trackNo, elapsedSeconds int) error {
	return n.command(ctx, CmdSeek, SeekBody{TrackNo: trackNo, ElapsedTime: elapsedSeconds})
}

func (n *node) SetRepeat(ctx context.Context, mode zone.RepeatMode) error {
	return n.command(ctx, CmdRepeat, RepeatBody{Mode: mode})
}

func (n *node) PlayFavorite(ctx context.Context, name string) error {
	return n.command(ctx, CmdFavorite, NameBody{Name: name})
}

func (n *node) PlayPlaylist(ctx context.Context, name string) error {
	return n.command(ctx, CmdPlaylist, NameBody{Name: name})
}
