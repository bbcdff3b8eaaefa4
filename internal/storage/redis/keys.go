package redis

import (
	"fmt"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/model"
)

// Key prefix for all battle-server data
const keyPrefix = "tetrichain"

// roomKey returns the Redis key for a BattleRoom
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// roomKeyIndexKey returns the Redis key for the room key -> room id mapping
func roomKeyIndexKey(key model.RoomKey) string {
	return fmt.Sprintf("%s:idx:room_key:%s", keyPrefix, key)
}

// playerRoomKey returns the Redis key for the player -> room id index
func playerRoomKey(identity model.PlayerIdentity) string {
	return fmt.Sprintf("%s:idx:player_room:%s", keyPrefix, identity)
}

// queueKey returns the Redis key for the matchmaking sorted set
func queueKey() string {
	return fmt.Sprintf("%s:mm:queue", keyPrefix)
}

// queueEntryKey returns the Redis key for a queue entry record
func queueEntryKey(identity model.PlayerIdentity) string {
	return fmt.Sprintf("%s:mm:entry:%s", keyPrefix, identity)
}
