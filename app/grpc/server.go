package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
	"github.com/vibast-solutions/ms-go-accounts/app/service"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type sessionResolver interface {
	Resolve(ctx context.Context, token string) (uint64, error)
}

type profileReader interface {
	GetProfile(ctx context.Context, userID uint64) (*dto.Profile, error)
}

type SessionServer struct {
	sessions sessionResolver
	profiles profileReader
}

func NewSessionServer(sessions sessionResolver, profiles profileReader) *SessionServer {
	return &SessionServer{
		sessions: sessions,
		profiles: profiles,
	}
}

func (s *SessionServer) ValidateSession(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.UInt64Value, error) {
	if req.GetValue() == "" {
		logrus.Debug("Validate session validation failed (grpc)")
		return nil, status.Error(codes.InvalidArgument, "session token is required")
	}

	userID, err := s.sessions.Resolve(ctx, req.GetValue())
	if err != nil {
		logrus.WithError(err).Debug("Validate session failed (grpc)")
		return nil, status.Error(codes.Unauthenticated, "invalid session")
	}

	logrus.WithField("user_id", userID).Debug("Validate session succeeded (grpc)")
	return wrapperspb.UInt64(userID), nil
}

func (s *SessionServer) GetUser(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	if req.GetValue() == 0 {
		logrus.Debug("Get user validation failed (grpc)")
		return nil, status.Error(codes.InvalidArgument, "user id is required")
	}

	profile, err := s.profiles.GetProfile(ctx, req.GetValue())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			logrus.WithField("user_id", req.GetValue()).Warn("Get user failed: user not found (grpc)")
			return nil, status.Error(codes.NotFound, "user not found")
		}
		logrus.WithError(err).WithField("user_id", req.GetValue()).Error("Get user failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	res, err := structpb.NewStruct(map[string]any{
		"id":         profile.UserID,
		"fullname":   profile.Fullname,
		"email":      profile.Email,
		"image_path": profile.ImagePath,
	})
	if err != nil {
		logrus.WithError(err).Error("Get user failed: encode response (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return res, nil
}
