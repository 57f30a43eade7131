package email

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &ses.SendEmailOutput{}, nil
}

func TestSendPasswordResetEmail(t *testing.T) {
	fake := &fakeSES{}
	svc := newSESService(fake, "noreply@unify.test", "Unify", "https://unify.test/")

	require.NoError(t, svc.SendPasswordResetEmail(context.Background(), "a@b.c", "tok123"))
	require.Len(t, fake.inputs, 1)

	in := fake.inputs[0]
	assert.Equal(t, "Unify <noreply@unify.test>", aws.ToString(in.Source))
	assert.Equal(t, []string{"a@b.c"}, in.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(in.Message.Body.Text.Data), "https://unify.test/reset-password?token=tok123")
	assert.Contains(t, aws.ToString(in.Message.Body.Html.Data), "reset-password?token=tok123")
}

func TestFriendRequestEmailEscapesNames(t *testing.T) {
	fake := &fakeSES{}
	svc := newSESService(fake, "noreply@unify.test", "", "https://unify.test")

	require.NoError(t, svc.SendFriendRequestEmail(context.Background(), "a@b.c", "Ann", "<b>Bob</b>", "bob"))
	in := fake.inputs[0]
	assert.Equal(t, "noreply@unify.test", aws.ToString(in.Source))
	assert.Equal(t, "<b>Bob</b> sent you a friend request", aws.ToString(in.Message.Subject.Data))
	assert.NotContains(t, aws.ToString(in.Message.Body.Html.Data), "<b>Bob</b>")
	assert.Contains(t, aws.ToString(in.Message.Body.Text.Data), "Hi Ann,")
}

func TestSendWrapsError(t *testing.T) {
	svc := newSESService(&fakeSES{err: errors.New("throttled")}, "x@y.z", "", "")
	err := svc.SendPasswordResetEmail(context.Background(), "a@b.c", "t")
	assert.ErrorContains(t, err, "throttled")
}

func TestMockSender(t *testing.T) {
	m := &MockSender{}
	require.NoError(t, m.SendFriendRequestEmail(context.Background(), "a@b.c", "Ann", "Bob", "bob"))
	msgs := m.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "friend_request", msgs[0].Kind)
	assert.Equal(t, "bob", msgs[0].Data["fromUsername"])
}
