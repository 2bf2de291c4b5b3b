package domain

import "errors"

var (
	ErrEmptyField          = errors.New("required field is empty")
	ErrDuplicateTitle      = errors.New("job description title already exists")
	ErrNotFound            = errors.New("record not found")
	ErrForeignKey          = errors.New("job description does not exist")
	ErrDuplicateSubmission = errors.New("resume already evaluated for this job description")
	ErrModelCall           = errors.New("evaluation model call failed")
)
