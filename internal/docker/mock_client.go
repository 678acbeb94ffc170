package docker

// This file defines a shared mock implementation of EngineAPI.

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/mock"
)

// MockEngine is a testify mock of EngineAPI
type MockEngine struct {
	mock.Mock
}

var _ EngineAPI = (*MockEngine)(nil)

func (m *MockEngine) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	args := m.Called(ctx, options)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]container.Summary), args.Error(1)
}

func (m *MockEngine) ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error) {
	args := m.Called(ctx, containerID)
	if args.Get(0) == nil {
		return container.InspectResponse{}, args.Error(1)
	}
	return args.Get(0).(container.InspectResponse), args.Error(1)
}

func (m *MockEngine) ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, containerID, options)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockEngine) ContainerStats(ctx context.Context, containerID string, stream bool) (container.StatsResponseReader, error) {
	args := m.Called(ctx, containerID, stream)
	var reader container.StatsResponseReader
	if args.Get(0) != nil {
		reader = args.Get(0).(container.StatsResponseReader)
	}
	return reader, args.Error(1)
}

func (m *MockEngine) Ping(ctx context.Context) (types.Ping, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return types.Ping{}, args.Error(1)
	}
	return args.Get(0).(types.Ping), args.Error(1)
}

func (m *MockEngine) ServerVersion(ctx context.Context) (types.Version, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return types.Version{}, args.Error(1)
	}
	return args.Get(0).(types.Version), args.Error(1)
}

func (m *MockEngine) Close() error {
	args := m.Called()
	return args.Error(0)
}

// StaticProvider is an EngineProvider that always returns the same engine or error
type StaticProvider struct {
	API EngineAPI
	Err error
}

// Engine implements EngineProvider
func (p StaticProvider) Engine(context.Context) (EngineAPI, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.API, nil
}

// StatsReader wraps a stats sample the way ContainerStats returns it
func StatsReader(s container.StatsResponse) container.StatsResponseReader {
	data, _ := json.Marshal(s)
	return container.StatsResponseReader{Body: io.NopCloser(bytes.NewReader(data)), OSType: "linux"}
}
