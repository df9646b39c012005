package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/voxrelay/internal/domain"
)

func TestChatRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		roles   []string
		wantErr bool
	}{
		{name: "no messages", roles: nil},
		{name: "known roles", roles: []string{"system", "user", "assistant"}},
		{name: "tool role", roles: []string{"user", "tool"}, wantErr: true},
		{name: "empty role", roles: []string{""}, wantErr: true},
		{name: "wrong case", roles: []string{"User"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &domain.ChatRequest{}
			for _, role := range tt.roles {
				req.Messages = append(req.Messages, domain.Message{Role: role, Content: "hi"})
			}

			err := req.Validate()

			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidRole)
				return
			}
			require.NoError(t, err)
		})
	}
}
