package entity

import "time"

type ChatRoom struct {
	Id           string    `json:"id"`
	IsGroup      bool      `json:"isGroup"`
	Name         string    `json:"name,omitempty"`
	Participants []User    `json:"participants"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (c *ChatRoom) HasParticipant(userId string) bool {
	for _, p := range c.Participants {
		if p.Id == userId {
			return true
		}
	}
	return false
}

// AddParticipant keeps the participant set unique by user id.
func (c *ChatRoom) AddParticipant(u User) {
	if c.HasParticipant(u.Id) {
		return
	}
	c.Participants = append(c.Participants, u)
}

func (c *ChatRoom) RemoveParticipant(userId string) {
	for i, p := range c.Participants {
		if p.Id == userId {
			c.Participants = append(c.Participants[:i], c.Participants[i+1:]...)
			return
		}
	}
}
