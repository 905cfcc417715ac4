package contact_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muratkomurcu/october4mama/internal/domain/contact"
	"github.com/muratkomurcu/october4mama/internal/storage/memory"
)

func valid() *contact.Message {
	return &contact.Message{
		Name:    " Mehmet Demir ",
		Email:   "mehmet@example.com",
		Subject: "Kargo",
		Body:    "Siparişim ne zaman gelir?",
	}
}

func TestService_Send(t *testing.T) {
	ctx := context.Background()
	svc := contact.NewService(memory.New().Messages())

	m := valid()
	require.NoError(t, svc.Send(ctx, m))
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "Mehmet Demir", m.Name)
	assert.False(t, m.Read)
	assert.False(t, m.CreatedAt.IsZero())

	msgs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, m.ID, msgs[0].ID)
}

func TestService_SendValidation(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mutate func(m *contact.Message)
	}{
		{name: "NoName", mutate: func(m *contact.Message) { m.Name = "  " }},
		{name: "NoSubject", mutate: func(m *contact.Message) { m.Subject = "" }},
		{name: "NoBody", mutate: func(m *contact.Message) { m.Body = "\n" }},
		{name: "BadEmail", mutate: func(m *contact.Message) { m.Email = "mehmet at example" }},
		{name: "NoEmail", mutate: func(m *contact.Message) { m.Email = "" }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.New()
			svc := contact.NewService(st.Messages())
			m := valid()
			tt.mutate(m)
			require.ErrorIs(t, svc.Send(context.Background(), m), contact.ErrInvalid)

			msgs, err := svc.List(context.Background())
			require.NoError(t, err)
			require.Empty(t, msgs)
		})
	}
}

func TestService_MarkReadAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := contact.NewService(memory.New().Messages())

	m := valid()
	require.NoError(t, svc.Send(ctx, m))

	read, err := svc.MarkRead(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	msgs, err := svc.List(ctx)
	require.NoError(t, err)
	require.True(t, msgs[0].Read)

	_, err = svc.MarkRead(ctx, "missing")
	require.ErrorIs(t, err, contact.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, m.ID))
	require.ErrorIs(t, svc.Delete(ctx, m.ID), contact.ErrNotFound)
}
