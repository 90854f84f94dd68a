// Package domain contains the core data structures and domain logic for the
// application.
package domain

import "time"

// Kind tells whether a record is a pull request or an issue.
type Kind string

const (
	KindPR    Kind = "pr"
	KindIssue Kind = "issue"
)

// String returns the display name used in report headers.
func (k Kind) String() string {
	if k == KindPR {
		return "PR"
	}
	return "issue"
}

// Plural returns the plural display name.
func (k Kind) Plural() string {
	return k.String() + "s"
}

// Association is the relationship the platform reports between a record's
// author and the repository.
type Association string

// The author associations GitHub emits. Values outside this set are treated
// like NONE.
const (
	AssociationOwner                Association = "OWNER"
	AssociationMember               Association = "MEMBER"
	AssociationCollaborator         Association = "COLLABORATOR"
	AssociationContributor          Association = "CONTRIBUTOR"
	AssociationFirstTimeContributor Association = "FIRST_TIME_CONTRIBUTOR"
	AssociationFirstTimer           Association = "FIRST_TIMER"
	AssociationMannequin            Association = "MANNEQUIN"
	AssociationNone                 Association = "NONE"
)

// Bucket is the reporting split: authors with write access versus everyone
// else.
type Bucket string

const (
	BucketCollaborator Bucket = "collaborator"
	BucketCommunity    Bucket = "community"
)

// Bucket classifies the association. The mapping is a fixed table: OWNER,
// MEMBER and COLLABORATOR count as collaborators, every other value
// (CONTRIBUTOR, the first-timer variants, NONE, anything unknown) counts as
// community.
func (a Association) Bucket() Bucket {
	switch a {
	case AssociationOwner, AssociationMember, AssociationCollaborator:
		return BucketCollaborator
	default:
		return BucketCommunity
	}
}

// ActivityRecord is one PR or issue as returned by a fetch source. Records
// are immutable once fetched.
type ActivityRecord struct {
	Kind        Kind        `json:"kind"`
	Number      int         `json:"number"`
	Title       string      `json:"title"`
	Author      string      `json:"author"`
	Association Association `json:"association"`
	CreatedAt   time.Time   `json:"created_at"`
	ClosedAt    *time.Time  `json:"closed_at,omitempty"`
	MergedAt    *time.Time  `json:"merged_at,omitempty"`
	URL         string      `json:"url"`
}
