package entities

import "time"

const (
	RoleCreator = "creator"
	RoleJoined  = "joined"
)

// LastMove is the change signal carried on every room snapshot. The full
// Moves map stays the durable log; LastMove only says "something changed,
// check for a win".
type LastMove struct {
	Row    int    `dynamodbav:"row" json:"row"`
	Col    int    `dynamodbav:"col" json:"col"`
	Symbol string `dynamodbav:"symbol" json:"symbol"`
}

// Room is the shared matchmaking and gameplay document, keyed by its
// 4-character code.
type Room struct {
	RoomId      string            `dynamodbav:"roomId" json:"roomId"`
	CreatorId   string            `dynamodbav:"creatorId" json:"creatorId"`
	CreatorName string            `dynamodbav:"creatorName" json:"creatorName"`
	JoinedId    string            `dynamodbav:"joinedId" json:"joinedId,omitempty"`
	JoinedName  string            `dynamodbav:"joinedName" json:"joinedName,omitempty"`
	CreatedAt   time.Time         `dynamodbav:"createdAt" json:"createdAt"`
	IsLocked    bool              `dynamodbav:"isLocked" json:"isLocked"`
	Ready       map[string]bool   `dynamodbav:"ready" json:"ready"`
	Moves       map[string]string `dynamodbav:"moves" json:"moves"`
	LastMove    *LastMove         `dynamodbav:"lastMove" json:"lastMove,omitempty"`
}

// Age reports how long ago the room was created, against the given clock.
func (r Room) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}

// RoleOf resolves which side a client id plays in this room.
func (r Room) RoleOf(clientId string) (string, bool) {
	switch clientId {
	case r.CreatorId:
		return RoleCreator, true
	case r.JoinedId:
		return RoleJoined, true
	}
	return "", false
}
