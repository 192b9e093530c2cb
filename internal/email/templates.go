package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/shopspring/decimal"
)

const cellStyle = `padding: 12px; border-bottom: 1px solid #eee;`

// BuildOrderConfirmationBody builds the HTML body for order confirmation email
func BuildOrderConfirmationBody(o *order.Order) string {
	var itemsHTML strings.Builder
	for _, item := range o.Items {
		name := item.Name
		if name == "" {
			name = item.ProductID
		}
		itemsHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="%[1]s">%[2]s</td>
				<td style="%[1]s text-align: center;">%[3]d</td>
				<td style="%[1]s text-align: right;">$%[4]s</td>
				<td style="%[1]s text-align: right;">$%[5]s</td>
			</tr>`,
			cellStyle,
			html.EscapeString(name),
			item.Quantity,
			formatMoney(item.Price),
			formatMoney(item.Subtotal),
		))
	}

	content := fmt.Sprintf(`<p style="margin-top: 0;">Hi %s, thank you for your order.</p>

		%s

		<h2 style="font-size: 18px; border-bottom: 2px solid #667eea; padding-bottom: 10px;">Order details</h2>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Item</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Qty</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Price</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		%s

		<p style="font-size: 14px;">Ships to: %s</p>`,
		html.EscapeString(o.CustomerName),
		orderNumberBlock(o.ID),
		itemsHTML.String(),
		totalBlock("Total", o.TotalAmount),
		html.EscapeString(o.ShippingAddress),
	)
	return layout("Thank you for your order", content)
}

// BuildPaymentReceiptBody builds the HTML body for the payment receipt
func BuildPaymentReceiptBody(o *order.Order) string {
	method, txn := "", ""
	if o.PaymentInfo != nil {
		method = methodLabel(o.PaymentInfo)
		txn = o.PaymentInfo.TransactionID
	}
	content := fmt.Sprintf(`<p style="margin-top: 0;">Hi %s, we have recorded your payment.</p>

		%s

		<p style="font-size: 14px;">Payment method: %s<br>Transaction: <span style="font-family: monospace;">%s</span></p>

		%s`,
		html.EscapeString(o.CustomerName),
		orderNumberBlock(o.ID),
		html.EscapeString(method),
		html.EscapeString(txn),
		totalBlock("Amount", o.TotalAmount),
	)
	return layout("Payment received", content)
}

// BuildPasswordResetBody builds the HTML body for a password reset link
func BuildPasswordResetBody(firstName, resetURL string) string {
	link := html.EscapeString(resetURL)
	content := fmt.Sprintf(`<p style="margin-top: 0;">Hello %s,</p>

		<p>We received a request to reset your password. Use the button below to choose a new one.</p>

		<p style="text-align: center; margin: 30px 0;">
			<a href="%s" style="display: inline-block; padding: 14px 36px; background: #667eea; color: #fff; text-decoration: none; font-weight: bold; border-radius: 4px;">Reset password</a>
		</p>

		<p style="font-size: 14px; color: #666;">If the button does not work, paste this link into your browser:</p>
		<p style="font-size: 13px; word-break: break-all; font-family: monospace;">%s</p>

		<p style="font-size: 14px; color: #666;">The link expires in one hour. If you did not ask for a reset you can ignore this email.</p>`,
		html.EscapeString(firstName), link, link)
	return layout("Password reset", content)
}

func methodLabel(info *order.PaymentInfo) string {
	switch info.Method {
	case order.MethodCard:
		return "Card ending in " + info.CardLast4
	case order.MethodPayPal:
		return "PayPal (" + info.PayPalEmail + ")"
	case order.MethodQR:
		return "QR payment"
	case order.MethodCOD:
		return "Cash on delivery"
	}
	return string(info.Method)
}

func orderNumberBlock(orderID string) string {
	return fmt.Sprintf(`<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>`, html.EscapeString(orderID))
}

func totalBlock(label string, amount decimal.Decimal) string {
	return fmt.Sprintf(`<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">%s</span>
			<span style="font-size: 24px; font-weight: bold; color: #667eea; margin-left: 10px;">$%s</span>
		</div>`, label, formatMoney(amount))
}

func layout(title, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">%s</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		%s

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This is an automated message. Please contact support if you have any questions.
		</p>
	</div>
</body>
</html>`, title, content)
}

// formatMoney renders an amount with two decimals and comma separators
func formatMoney(d decimal.Decimal) string {
	str := d.Abs().StringFixed(2)
	intPart, frac := str[:len(str)-3], str[len(str)-3:]

	var result strings.Builder
	if d.IsNegative() {
		result.WriteString("-")
	}
	remainder := len(intPart) % 3
	if remainder > 0 {
		result.WriteString(intPart[:remainder])
	}
	for i := remainder; i < len(intPart); i += 3 {
		if i > 0 {
			result.WriteString(",")
		}
		result.WriteString(intPart[i : i+3])
	}
	result.WriteString(frac)
	return result.String()
}
