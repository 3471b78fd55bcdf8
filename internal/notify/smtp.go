package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	texttemplate "text/template"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

const welcomeSubject = "🎉 Добро пожаловать в систему прогнозирования!"

var welcomeHTML = template.Must(template.New("welcome_html").Parse(`<html>
  <body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>🎉 Добро пожаловать!</h1>
    <h2>Привет, {{.Username}}!</h2>
    <p>Спасибо за регистрацию в системе прогнозирования спроса! Ваша компания <strong>"{{.StoreName}}"</strong> успешно добавлена.</p>
    <h3>🚀 Что дальше?</h3>
    <ul>
      <li>Загрузите исторические данные о продажах (CSV формат)</li>
      <li>Получите автоматические прогнозы спроса</li>
      <li>Получите рекомендации по закупкам товаров</li>
      <li>Избегайте дефицита и перезатоваривания складов</li>
    </ul>
    <p style="color: #9ca3af; font-size: 12px;">Это письмо отправлено автоматически. Пожалуйста, не отвечайте на него.</p>
  </body>
</html>
`))

var welcomeText = texttemplate.Must(texttemplate.New("welcome_text").Parse(`Добро пожаловать, {{.Username}}!

Спасибо за регистрацию в системе прогнозирования спроса.
Ваш магазин "{{.StoreName}}" успешно добавлен.

Что дальше?
- Загрузите данные о продажах
- Получите прогнозы спроса
- Оптимизируйте закупки
`))

// SMTPNotifier sends mail over implicit TLS on port 465 and STARTTLS when the
// server offers it otherwise.
type SMTPNotifier struct {
	cfg     config.MailConfig
	timeout time.Duration
	now     func() time.Time
}

func NewSMTPNotifier(cfg config.MailConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, timeout: 15 * time.Second, now: time.Now}
}

func (n *SMTPNotifier) SendWelcome(ctx context.Context, user domain.User) error {
	msg, err := n.buildWelcome(user)
	if err != nil {
		return err
	}
	return n.send(ctx, msg)
}

func (n *SMTPNotifier) buildWelcome(user domain.User) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", n.cfg.From, err)
	}
	if err := msg.To(user.Email); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", user.Email, err)
	}
	msg.Subject(welcomeSubject)
	msg.SetDateWithValue(n.now())

	if err := msg.SetBodyTextTemplate(welcomeText, user); err != nil {
		return nil, fmt.Errorf("render welcome text: %w", err)
	}
	if err := msg.AddAlternativeHTMLTemplate(welcomeHTML, user); err != nil {
		return nil, fmt.Errorf("render welcome html: %w", err)
	}
	return msg, nil
}

func (n *SMTPNotifier) send(ctx context.Context, msg *mail.Msg) error {
	timeout := n.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return fmt.Errorf("smtp send: %w", context.DeadlineExceeded)
	}

	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTimeout(timeout),
		mail.WithTLSConfig(n.tlsConfig()),
		mail.WithDialContextFunc(n.dial),
	}
	if n.implicitTLS() {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}

	client, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// dial bounds the whole session, greeting included, by the context deadline
// and the notifier timeout. Implicit TLS is negotiated here because a custom
// dialer replaces the client's own TLS dialer.
func (n *SMTPNotifier) dial(ctx context.Context, network, address string) (net.Conn, error) {
	d := &net.Dialer{Timeout: n.timeout}
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(n.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if !n.implicitTLS() {
		return conn, nil
	}
	tlsConn := tls.Client(conn, n.tlsConfig())
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func (n *SMTPNotifier) implicitTLS() bool {
	return n.cfg.Port == 465
}

func (n *SMTPNotifier) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12}
}
