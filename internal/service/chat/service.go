// Package chat implements direct messaging and reactions on top of the store,
// publishing every successful write on the broker.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vovakirdan/wiredm/internal/core"
	"github.com/vovakirdan/wiredm/internal/store"
)

// Store is the persistence the chat service needs.
type Store interface {
	store.UserStore
	store.MessageStore
	store.ReactionStore
}

// Service provides messaging business logic.
type Service struct {
	store     Store
	publisher core.Publisher
	log       *zerolog.Logger
	tracer    trace.Tracer
}

// New creates a chat service publishing on pub.
func New(st Store, pub core.Publisher, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:     st,
		publisher: pub,
		log:       logger,
		tracer:    otel.Tracer("github.com/vovakirdan/wiredm/internal/service/chat"),
	}
}

// ListConversation returns messages between self and other, newest first, with reactions.
func (s *Service) ListConversation(ctx context.Context, self, other string) (msgs []*store.Message, err error) {
	ctx, span := s.tracer.Start(ctx, "chat.ListConversation", trace.WithAttributes(attribute.String("chat.with", other)))
	defer func() { endSpan(span, err) }()

	if _, err := s.lookupUser(ctx, strings.TrimSpace(other), core.NotFound("User not found")); err != nil {
		return nil, err
	}

	msgs, err = s.store.ListConversation(ctx, self, strings.TrimSpace(other))
	if err != nil {
		return nil, core.Internal(fmt.Errorf("list conversation: %w", err))
	}
	if err := s.attachReactions(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage stores a message from one user to another and publishes it.
func (s *Service) SendMessage(ctx context.Context, from, to, content string) (msg *store.Message, err error) {
	ctx, span := s.tracer.Start(ctx, "chat.SendMessage", trace.WithAttributes(attribute.String("chat.to", to)))
	defer func() { endSpan(span, err) }()

	if _, err := s.lookupUser(ctx, from, core.Unauthenticated("Unauthenticated")); err != nil {
		return nil, err
	}
	to = strings.TrimSpace(to)
	if _, err := s.lookupUser(ctx, to, core.NotFound("User not found")); err != nil {
		return nil, err
	}
	if from == to {
		return nil, core.InvalidArgument("You cannot message yourself", map[string]string{"to": "Recipient must be another user"})
	}
	if strings.TrimSpace(content) == "" {
		return nil, core.InvalidArgument("Message is empty", map[string]string{"content": "Message is empty"})
	}

	msg = &store.Message{
		UUID:    uuid.NewString(),
		From:    from,
		To:      to,
		Content: content,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, core.Internal(fmt.Errorf("create message: %w", err))
	}
	if msg.Reactions == nil {
		msg.Reactions = []store.Reaction{}
	}

	s.publisher.Publish(core.TopicNewMessage, core.Event{Kind: core.EventNewMessage, Message: msg})
	s.log.Debug().Str("uuid", msg.UUID).Str("from", from).Str("to", to).Msg("message sent")
	return msg, nil
}

// React records reactor's reaction on a message, replacing any earlier one, and publishes it.
func (s *Service) React(ctx context.Context, reactor, messageUUID, content string) (reaction *store.Reaction, err error) {
	ctx, span := s.tracer.Start(ctx, "chat.React", trace.WithAttributes(attribute.String("chat.message_uuid", messageUUID)))
	defer func() { endSpan(span, err) }()

	if !ValidReaction(content) {
		return nil, core.InvalidArgument("Invalid reaction", map[string]string{"content": "Invalid reaction"})
	}

	user, err := s.lookupUser(ctx, reactor, core.Unauthenticated("Unauthenticated"))
	if err != nil {
		return nil, err
	}

	msg, err := s.store.GetMessageByUUID(ctx, messageUUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("Message not found")
		}
		return nil, core.Internal(fmt.Errorf("get message: %w", err))
	}

	if !msg.HasParticipant(user.Username) {
		return nil, core.Forbidden("Forbidden")
	}

	reaction, err = s.store.UpsertReaction(ctx, msg.ID, user.ID, uuid.NewString(), content)
	if err != nil {
		return nil, core.Internal(fmt.Errorf("upsert reaction: %w", err))
	}

	s.publisher.Publish(core.TopicNewReaction, core.Event{Kind: core.EventNewReaction, Reaction: reaction})
	s.log.Debug().Str("message", msg.UUID).Str("user", user.Username).Str("content", content).Msg("reaction saved")
	return reaction, nil
}

// ListUsers returns every other user with the latest message exchanged with self.
func (s *Service) ListUsers(ctx context.Context, self string) (users []*store.UserSummary, err error) {
	ctx, span := s.tracer.Start(ctx, "chat.ListUsers")
	defer func() { endSpan(span, err) }()

	if _, err := s.lookupUser(ctx, self, core.Unauthenticated("Unauthenticated")); err != nil {
		return nil, err
	}

	others, err := s.store.ListUsersExcept(ctx, self)
	if err != nil {
		return nil, core.Internal(fmt.Errorf("list users: %w", err))
	}
	latest, err := s.store.LatestMessages(ctx, self)
	if err != nil {
		return nil, core.Internal(fmt.Errorf("latest messages: %w", err))
	}

	users = make([]*store.UserSummary, 0, len(others))
	for _, u := range others {
		summary := &store.UserSummary{User: *u, LatestMessage: latest[u.Username]}
		if summary.LatestMessage != nil && summary.LatestMessage.Reactions == nil {
			summary.LatestMessage.Reactions = []store.Reaction{}
		}
		users = append(users, summary)
	}
	return users, nil
}

// lookupUser maps a missing user to notFound and other failures to an internal error.
func (s *Service) lookupUser(ctx context.Context, username string, notFound *core.Error) (*store.User, error) {
	if username == "" {
		return nil, notFound
	}
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound
		}
		return nil, core.Internal(fmt.Errorf("get user: %w", err))
	}
	return user, nil
}

func (s *Service) attachReactions(ctx context.Context, msgs []*store.Message) error {
	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	byMessage, err := s.store.ListReactions(ctx, ids)
	if err != nil {
		return core.Internal(fmt.Errorf("list reactions: %w", err))
	}
	for _, m := range msgs {
		m.Reactions = byMessage[m.ID]
		if m.Reactions == nil {
			m.Reactions = []store.Reaction{}
		}
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil && core.KindOf(err) == core.KindInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
