// Package zeebetest provides an in-memory worker.JobClient for handler tests.
// Commands are built with the real zeebe command types and recorded by a
// fake gateway instead of being sent over gRPC.
package zeebetest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"google.golang.org/grpc"
)

// Gateway records job commands. Embedding pb.GatewayClient satisfies the
// rest of the interface; calling any other RPC panics.
type Gateway struct {
	pb.GatewayClient

	mu        sync.Mutex
	completed []*pb.CompleteJobRequest
	failed    []*pb.FailJobRequest
	thrown    []*pb.ThrowErrorRequest
}

func (g *Gateway) CompleteJob(_ context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed = append(g.completed, in)
	return &pb.CompleteJobResponse{}, nil
}

func (g *Gateway) FailJob(_ context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failed = append(g.failed, in)
	return &pb.FailJobResponse{}, nil
}

func (g *Gateway) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.thrown = append(g.thrown, in)
	return &pb.ThrowErrorResponse{}, nil
}

// JobClient implements worker.JobClient on top of Gateway.
type JobClient struct {
	*Gateway
}

func NewJobClient() *JobClient {
	return &JobClient{Gateway: &Gateway{}}
}

func noRetry(context.Context, error) bool { return false }

func (c *JobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.Gateway, noRetry)
}

func (c *JobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.Gateway, noRetry)
}

func (c *JobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.Gateway, noRetry)
}

func (c *JobClient) Completed() []*pb.CompleteJobRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*pb.CompleteJobRequest(nil), c.completed...)
}

func (c *JobClient) Failed() []*pb.FailJobRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*pb.FailJobRequest(nil), c.failed...)
}

func (c *JobClient) Thrown() []*pb.ThrowErrorRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*pb.ThrowErrorRequest(nil), c.thrown...)
}

// NewJob builds an activated job whose variables are the JSON encoding of
// variables. A string is used verbatim, which allows malformed payloads.
func NewJob(key int64, taskType string, variables interface{}) entities.Job {
	var vars string
	switch v := variables.(type) {
	case string:
		vars = v
	default:
		b, _ := json.Marshal(v)
		vars = string(b)
	}

	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                      key,
		Type:                     taskType,
		ProcessInstanceKey:       key * 10,
		BpmnProcessId:            "listing-search",
		ProcessDefinitionVersion: 1,
		ProcessDefinitionKey:     1,
		ElementId:                "Activity_" + taskType,
		ElementInstanceKey:       1,
		CustomHeaders:            "{}",
		Worker:                   "test-worker",
		Retries:                  3,
		Variables:                vars,
	}}
}
