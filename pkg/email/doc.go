// Package email sends the transactional mail this system produces, which is
// currently the billing payment-failure notice. The EmailSender interface
// keeps the provider swappable: NewPostmarkClient for production delivery,
// NewDevSender for local development where messages land on disk.
//
// # Usage
//
//	var cfg email.Config
//	config.MustLoad(&cfg)
//
//	sender, err := email.NewPostmarkClient(cfg)
//	if err != nil {
//	    panic(err)
//	}
//
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   tenantOwner,
//	    Subject:  "Gallerykit: payment failed",
//	    BodyHTML: body,
//	    Tag:      "billing-payment-failed",
//	})
//
// Every implementation validates params first; [ErrInvalidParams],
// [ErrInvalidConfig] and [ErrFailedToSendEmail] are matchable with errors.Is.
package email
