package api

import (
	"chat-backend/internal/database"
	"chat-backend/pkg/api"
)

func convertUser(u database.User) api.User {
	return api.User{
		Id:   u.ID,
		Name: u.Name,
	}
}

func convertUsersWithKeys(us []database.User) []api.UserWithKey {
	users := make([]api.UserWithKey, 0, len(us))
	for _, u := range us {
		users = append(users, api.UserWithKey{Id: u.ID, Name: u.Name, APIKey: u.APIKey})
	}
	return users
}

func convertMessage(m database.Message) api.Message {
	return api.Message{
		Id:         m.ID,
		Content:    m.Content,
		IsFromUser: m.IsFromUser,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

func convertMessages(ms []database.Message) []api.Message {
	messages := make([]api.Message, 0, len(ms))
	for _, m := range ms {
		messages = append(messages, convertMessage(m))
	}
	return messages
}

func convertThread(t database.Thread) api.Thread {
	return api.Thread{
		Id:       t.ID,
		Messages: convertMessages(t.Messages),
	}
}
