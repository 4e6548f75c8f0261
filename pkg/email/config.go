package email

// Config configures the Postmark-backed sender. The tokens carry no env
// "required" tag because development deployments run the DevSender instead;
// NewPostmarkClient still refuses to start without them.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}
