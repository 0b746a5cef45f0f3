package models

import "time"

// WriteOp is the kind of a transactional write.
type WriteOp int

const (
	OpPutCharacter WriteOp = iota + 1
	OpDeleteCharacter
	OpTouchProfile
	OpPutInstance
)

func (o WriteOp) String() string {
	switch o {
	case OpPutCharacter:
		return "put_character"
	case OpDeleteCharacter:
		return "delete_character"
	case OpTouchProfile:
		return "touch_profile"
	case OpPutInstance:
		return "put_instance"
	default:
		return "unknown"
	}
}

// WriteItem is one operation inside a store transaction.
type WriteItem struct {
	Op          WriteOp
	Character   *EnrichedCharacter
	Instance    *Instance
	CharacterID int64
	UserID      int64
	At          time.Time
}

func PutCharacter(c *EnrichedCharacter) WriteItem {
	return WriteItem{Op: OpPutCharacter, Character: c, CharacterID: c.ID, UserID: c.UserID}
}

func DeleteCharacter(id int64) WriteItem {
	return WriteItem{Op: OpDeleteCharacter, CharacterID: id}
}

func TouchProfile(userID int64, at time.Time) WriteItem {
	return WriteItem{Op: OpTouchProfile, UserID: userID, At: at}
}

func PutInstance(i *Instance) WriteItem {
	return WriteItem{Op: OpPutInstance, Instance: i}
}
