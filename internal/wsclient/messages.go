// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wsclient

import "encoding/json"

// handshakeAuth is the auth context carried by the client handshake.
type handshakeAuth struct {
	AppID       string `json:"appId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	DocID       string `json:"docId"`
	Token       string `json:"token"`
	Permission  string `json:"permission"`
}

// clientMessage is a client-to-server frame. The handshake carries a
// literal null id (a nil RawMessage marshals as null, which the server
// expects) and the fetch request carries the collection/document pair.
type clientMessage struct {
	Action string          `json:"a"`
	ID     json.RawMessage `json:"id"`
	Auth   *handshakeAuth  `json:"auth,omitempty"`
}

// fetchMessage is the document-fetch request frame.
type fetchMessage struct {
	Action     string `json:"a"`
	Collection string `json:"c"`
	Document   string `json:"d"`
}

// serverMessage is a decoded server-to-client frame. Unknown actions are
// ignored by the pump.
type serverMessage struct {
	Action string          `json:"a"`
	ID     json.RawMessage `json:"id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

const (
	actionHandshake = "hs"
	actionInit      = "init"
	actionFetch     = "f"
)
