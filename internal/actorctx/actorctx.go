package actorctx

import "context"

type ctxKey string

const keyActorID ctxKey = "actor_id"

// WithActorID binds the authenticated (or job-originating) user id to a
// plain context so non-HTTP layers can log and attribute work without
// reaching back into gin.
func WithActorID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyActorID, userID)
}

func ActorIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyActorID).(string)

	return v, ok && v != ""
}
