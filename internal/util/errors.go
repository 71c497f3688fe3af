package util

import "errors"

var (
	ErrUserNotFound    = errors.New("用户不存在")
	ErrEmailRegistered = errors.New("该邮箱已被注册")

	ErrTemplateNotFound     = errors.New("template not found")
	ErrTemplateNotAvailable = errors.New("template not active or not public")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrQuestionNotInSession = errors.New("question does not belong to this session")

	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionExpired          = errors.New("session expired")
	ErrSessionNotInProgress    = errors.New("session is not in progress")
	ErrActiveSessionExists     = errors.New("an active session already exists for this template")
	ErrMaxAttemptsReached      = errors.New("maximum attempts reached")
	ErrQuestionAlreadyAnswered = errors.New("question already answered")
	ErrSessionNotCompleted     = errors.New("session not completed")
	ErrResultsHidden           = errors.New("results are not available for this template")
)
