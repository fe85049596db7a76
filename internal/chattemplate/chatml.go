// Package chattemplate renders role-tagged messages into a single prompt string.
package chattemplate

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
)

const (
	imStart = "<|im_start|>"
	imEnd   = "<|im_end|>"
)

// chatMLTemplate is the Qwen2 chat template with the generation prompt appended
const chatMLTemplate = imStart + "system\n{{.System}}" + imEnd + "\n" +
	imStart + "user\n{{.User}}" + imEnd + "\n" +
	imStart + "assistant\n"

var chatML = template.Must(template.New("chatml").Parse(chatMLTemplate))

// ChatML formats requests with the ChatML markers used by Qwen instruct models
type ChatML struct{}

// Ensure ChatML implements the ChatTemplate interface
var _ repositories.ChatTemplate = ChatML{}

// New returns the ChatML template
func New() ChatML {
	return ChatML{}
}

// Format renders the system instruction and user utterance. The result depends only on its inputs.
func (ChatML) Format(system string, utterance entities.Utterance) (entities.ConversationRequest, error) {
	if err := validateRole("system", system); err != nil {
		return entities.ConversationRequest{}, domain.WrapStage(domain.ErrTemplate, err)
	}
	if err := validateRole("user", utterance.Text); err != nil {
		return entities.ConversationRequest{}, domain.WrapStage(domain.ErrTemplate, err)
	}

	request := entities.ConversationRequest{
		System: system,
		User:   utterance.Text,
	}

	var buf bytes.Buffer
	if err := chatML.Execute(&buf, request); err != nil {
		return entities.ConversationRequest{}, domain.WrapStage(domain.ErrTemplate,
			fmt.Errorf("failed to execute chat template: %w", err))
	}
	request.Prompt = buf.String()

	return request, nil
}

func validateRole(role, content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%s message cannot be empty", role)
	}
	if strings.Contains(content, imStart) || strings.Contains(content, imEnd) {
		return errors.New(role + " message contains chat control markers")
	}
	return nil
}
