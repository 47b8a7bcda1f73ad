package main

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	apiv1 "github.com/SanjoDeundiak/server-supervisor/api/v1"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
)

func toStatusError(err error) error {
	var (
		downloadErr *lib.DownloadError
		spawnErr    *lib.SpawnError
	)

	switch {
	case errors.Is(err, lib.ErrPrerequisiteMissing),
		errors.Is(err, lib.ErrNotRunning),
		errors.Is(err, lib.ErrInputClosed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, lib.ErrCommandTooLong),
		errors.Is(err, lib.ErrInvalidCommand):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &downloadErr):
		return status.Error(codes.Unavailable, err.Error())
	case errors.As(err, &spawnErr):
		return status.Error(codes.Aborted, err.Error())
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}

func statusResponse(st lib.Status) (*structpb.Struct, error) {
	resp, err := apiv1.StatusToProto(st)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding status: %v", err)
	}
	return resp, nil
}
