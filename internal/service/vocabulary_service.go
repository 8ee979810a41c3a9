package service

import (
	"context"
	"encoding/json"

	uverrors "github.com/nyulibraries/ultraviolet-cli/internal/errors"
	"github.com/nyulibraries/ultraviolet-cli/internal/schema"
)

// vocabularyMap pairs each vocabulary name with its short code. Either form
// is accepted as a key.
var vocabularyMap = map[string]string{
	"languages":     "lng",
	"licenses":      "lic",
	"resourcetypes": "rsrct",
	"creatorsroles": "crr",
	"affiliations":  "aff",
	"subjects":      "sub",
}

// ResolveVocabulary maps a name or short code to the canonical vocabulary
// name and its short code.
func ResolveVocabulary(key string) (name, shortCode string, ok bool) {
	for n, code := range vocabularyMap {
		if key == n || key == code {
			return n, code, true
		}
	}
	return "", "", false
}

// VocabularyAPI is the slice of the REST client the vocabulary command needs.
type VocabularyAPI interface {
	CreateVocabularyEntry(ctx context.Context, shortCode string, entry json.RawMessage) error
	CreateVocabularyRecord(ctx context.Context, resource string, entry json.RawMessage) error
	RefreshVocabularyIndex(ctx context.Context, shortCode string) error
}

// VocabularyService implements the vocabulary admin operation.
type VocabularyService struct {
	api VocabularyAPI
}

// NewVocabularyService creates a new VocabularyService.
func NewVocabularyService(api VocabularyAPI) *VocabularyService {
	return &VocabularyService{api: api}
}

// Update validates and creates one vocabulary entry, then refreshes the
// search index. Subjects and affiliations have their own resource routes;
// the other vocabularies go through the generic vocabulary route.
func (s *VocabularyService) Update(ctx context.Context, key string, data []byte) (string, error) {
	if !json.Valid(data) {
		return "", uverrors.Validationf("Invalid JSON input.")
	}

	name, shortCode, ok := ResolveVocabulary(key)
	if !ok {
		return "", uverrors.Validationf("Unknown vocabulary key: %s", key)
	}

	vocabSchema, err := schema.Vocabulary(name)
	if err != nil {
		return "", err
	}
	if err := schema.Validate(data, vocabSchema); err != nil {
		return "", err
	}

	if name == "subjects" || name == "affiliations" {
		err = s.api.CreateVocabularyRecord(ctx, name, data)
	} else {
		err = s.api.CreateVocabularyEntry(ctx, shortCode, data)
	}
	if err != nil {
		if uverrors.IsKind(err, uverrors.KindConflict) {
			return "", uverrors.Conflictf("Cannot create entry: ID already exists")
		}
		return "", err
	}

	if err := s.api.RefreshVocabularyIndex(ctx, shortCode); err != nil {
		return "", err
	}
	return name, nil
}
