// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Level is the audit policy level the event was recorded at.
type Level string

const (
	LevelNone            Level = "None"
	LevelMetadata        Level = "Metadata"
	LevelRequest         Level = "Request"
	LevelRequestResponse Level = "RequestResponse"
)

// IsKnown reports whether level is one of the four defined levels.
func (level Level) IsKnown() bool {
	switch level {
	case LevelNone, LevelMetadata, LevelRequest, LevelRequestResponse:
		return true
	default:
		return false
	}
}

// Stage is the request handling stage the event was emitted at.
type Stage string

const (
	StageRequestReceived  Stage = "RequestReceived"
	StageResponseStarted  Stage = "ResponseStarted"
	StageResponseComplete Stage = "ResponseComplete"
	StagePanic            Stage = "Panic"
)

// IsKnown reports whether stage is one of the four defined stages.
func (stage Stage) IsKnown() bool {
	switch stage {
	case StageRequestReceived, StageResponseStarted, StageResponseComplete, StagePanic:
		return true
	default:
		return false
	}
}

// Event is one audit record: a single request observed by the API
// server at one stage of its handling. Events are immutable once
// decoded and validated.
type Event struct {
	Kind       string `json:"kind"`
	APIVersion string `json:"apiVersion"`
	Level      Level  `json:"level"`

	// AuditID is the UUID the API server assigns to the request.
	// Every stage of the same request shares it.
	AuditID string `json:"auditID"`

	Stage      Stage  `json:"stage"`
	RequestURI string `json:"requestURI"`
	Verb       string `json:"verb"`

	User             UserInfo  `json:"user"`
	ImpersonatedUser *UserInfo `json:"impersonatedUser,omitempty"`

	// SourceIPs lists the client address followed by any
	// intermediate proxies, as textual IP addresses.
	SourceIPs []string `json:"sourceIPs,omitempty"`
	UserAgent string   `json:"userAgent,omitempty"`

	ObjectRef      *ObjectReference `json:"objectRef,omitempty"`
	ResponseStatus *Status          `json:"responseStatus,omitempty"`

	// RequestObject and ResponseObject are the request and response
	// bodies, present only at the Request and RequestResponse levels.
	// Their shape depends on the resource and is not interpreted.
	RequestObject  any `json:"requestObject,omitempty"`
	ResponseObject any `json:"responseObject,omitempty"`

	// RequestReceivedTimestamp is when the request reached the API
	// server. kale orders records by it.
	RequestReceivedTimestamp time.Time `json:"requestReceivedTimestamp"`
	StageTimestamp           time.Time `json:"stageTimestamp"`

	Annotations map[string]string `json:"annotations,omitempty"`
}

// UserInfo identifies an authenticated user.
type UserInfo struct {
	Username string              `json:"username"`
	UID      string              `json:"uid,omitempty"`
	Groups   []string            `json:"groups,omitempty"`
	Extra    map[string][]string `json:"extra,omitempty"`
}

// ObjectReference identifies the object a request addressed.
type ObjectReference struct {
	Resource        string `json:"resource,omitempty"`
	Namespace       string `json:"namespace,omitempty"`
	Name            string `json:"name,omitempty"`
	UID             string `json:"uid,omitempty"`
	APIGroup        string `json:"apiGroup,omitempty"`
	APIVersion      string `json:"apiVersion,omitempty"`
	ResourceVersion string `json:"resourceVersion,omitempty"`
	Subresource     string `json:"subresource,omitempty"`
}

// String renders the reference as namespace/resource/name/subresource
// followed by the UID in parentheses. Absent parts are omitted along
// with their separator.
func (reference ObjectReference) String() string {
	var builder strings.Builder
	if reference.Namespace != "" {
		builder.WriteString(reference.Namespace)
		builder.WriteByte('/')
	}
	if reference.Resource != "" {
		builder.WriteString(reference.Resource)
		builder.WriteByte('/')
	}
	builder.WriteString(reference.Name)
	if reference.Subresource != "" {
		builder.WriteByte('/')
		builder.WriteString(reference.Subresource)
	}
	if reference.UID != "" {
		builder.WriteString(" (")
		builder.WriteString(reference.UID)
		builder.WriteByte(')')
	}
	return builder.String()
}

// Status is the metav1.Status returned with the response.
type Status struct {
	Kind       string         `json:"kind,omitempty"`
	APIVersion string         `json:"apiVersion,omitempty"`
	Metadata   *ListMeta      `json:"metadata,omitempty"`
	Status     string         `json:"status,omitempty"`
	Message    string         `json:"message,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Details    *StatusDetails `json:"details,omitempty"`
	Code       int32          `json:"code"`
}

// StatusDetails carries the structured reason for a failed request.
type StatusDetails struct {
	Name              string        `json:"name,omitempty"`
	Group             string        `json:"group,omitempty"`
	Kind              string        `json:"kind,omitempty"`
	UID               string        `json:"uid,omitempty"`
	Causes            []StatusCause `json:"causes,omitempty"`
	RetryAfterSeconds int32         `json:"retryAfterSeconds,omitempty"`
}

// StatusCause is one field-level cause within StatusDetails.
type StatusCause struct {
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// ListMeta is the list metadata a Status may carry.
type ListMeta struct {
	SelfLink           string `json:"selfLink,omitempty"`
	ResourceVersion    string `json:"resourceVersion,omitempty"`
	Continue           string `json:"continue,omitempty"`
	RemainingItemCount *int64 `json:"remainingItemCount,omitempty"`
}

// Validate checks that every required field is present and that the
// enumerated and formatted fields hold legal values.
func (event *Event) Validate() error {
	if event.Kind == "" {
		return fmt.Errorf("audit event: kind is required")
	}
	if event.APIVersion == "" {
		return fmt.Errorf("audit event: apiVersion is required")
	}
	if !event.Level.IsKnown() {
		return fmt.Errorf("audit event: unknown level %q", event.Level)
	}
	if _, err := uuid.Parse(event.AuditID); err != nil {
		return fmt.Errorf("audit event: auditID %q: %w", event.AuditID, err)
	}
	if !event.Stage.IsKnown() {
		return fmt.Errorf("audit event %s: unknown stage %q", event.AuditID, event.Stage)
	}
	if event.RequestURI == "" {
		return fmt.Errorf("audit event %s: requestURI is required", event.AuditID)
	}
	if event.Verb == "" {
		return fmt.Errorf("audit event %s: verb is required", event.AuditID)
	}
	if event.User.Username == "" {
		return fmt.Errorf("audit event %s: user.username is required", event.AuditID)
	}
	if event.ImpersonatedUser != nil && event.ImpersonatedUser.Username == "" {
		return fmt.Errorf("audit event %s: impersonatedUser.username is required", event.AuditID)
	}
	for index, address := range event.SourceIPs {
		if _, err := netip.ParseAddr(address); err != nil {
			return fmt.Errorf("audit event %s: sourceIPs[%d]: %w", event.AuditID, index, err)
		}
	}
	if event.ObjectRef != nil && event.ObjectRef.UID != "" {
		if _, err := uuid.Parse(event.ObjectRef.UID); err != nil {
			return fmt.Errorf("audit event %s: objectRef.uid %q: %w", event.AuditID, event.ObjectRef.UID, err)
		}
	}
	if event.RequestReceivedTimestamp.IsZero() {
		return fmt.Errorf("audit event %s: requestReceivedTimestamp is required", event.AuditID)
	}
	if event.StageTimestamp.IsZero() {
		return fmt.Errorf("audit event %s: stageTimestamp is required", event.AuditID)
	}
	return nil
}

// Path returns the request URI without its query string.
func (event *Event) Path() string {
	path, _, _ := strings.Cut(event.RequestURI, "?")
	return path
}

// trackedPrefixes are the URI prefixes of requests that address
// resources in the cluster (core group and named API groups).
var trackedPrefixes = []string{"/api/", "/apis/"}

// IsResourceRequest reports whether the event addresses a cluster
// resource. Health probes, discovery of the API root, metrics and
// other non-resource URLs return false.
func (event *Event) IsResourceRequest() bool {
	for _, prefix := range trackedPrefixes {
		if strings.HasPrefix(event.RequestURI, prefix) {
			return true
		}
	}
	return false
}
