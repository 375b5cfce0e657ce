package server

import (
	"context"
	"errors"

	"github.com/dray-io/dray-lookup/internal/adminerr"
)

// TopicLooker is the part of the lookup resolver EndpointChecker needs.
type TopicLooker interface {
	LookupTopic(ctx context.Context, topic string) (string, error)
}

// EndpointChecker implements ReadinessChecker for the admin lookup endpoint.
// It resolves a canary topic; any answer short of a server error means the
// endpoint is reachable, including 404 for a canary that does not exist.
type EndpointChecker struct {
	resolver TopicLooker
	topic    string
}

// NewEndpointChecker creates an EndpointChecker resolving topic.
func NewEndpointChecker(resolver TopicLooker, topic string) *EndpointChecker {
	return &EndpointChecker{resolver: resolver, topic: topic}
}

func (c *EndpointChecker) Name() string {
	return "admin_endpoint"
}

// CheckReady performs one blocking lookup of the canary topic.
func (c *EndpointChecker) CheckReady(ctx context.Context) error {
	if c.resolver == nil {
		return errors.New("lookup resolver not configured")
	}
	_, err := c.resolver.LookupTopic(ctx, c.topic)
	if err == nil {
		return nil
	}
	if adminerr.StatusCode(err) != 0 && !adminerr.IsServerError(err) {
		// The server answered; the canary's existence is irrelevant.
		return nil
	}
	return err
}

// FuncChecker adapts a function to ReadinessChecker.
type FuncChecker struct {
	name  string
	check func(context.Context) error
}

// NewFuncChecker creates a FuncChecker. A nil check is always ready.
func NewFuncChecker(name string, check func(context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, check: check}
}

func (c *FuncChecker) Name() string {
	return c.name
}

func (c *FuncChecker) CheckReady(ctx context.Context) error {
	if c.check == nil {
		return nil
	}
	return c.check(ctx)
}
