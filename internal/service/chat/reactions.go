package chat

import "slices"

// Reactions is the closed set of emoji a message can be reacted with.
var Reactions = []string{"❤️", "😆", "😯", "😢", "😡", "👍", "👎"}

// ValidReaction reports whether content belongs to Reactions.
func ValidReaction(content string) bool {
	return slices.Contains(Reactions, content)
}
