package tokencodec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	MinTable = 1
	MaxTable = 999
)

var digitsRe = regexp.MustCompile(`^\d+$`)

// ErrTableRange is a format error for table numbers outside [MinTable, MaxTable].
var ErrTableRange = fmt.Errorf("%w: table number out of range", ErrFormat)

// Customer is the PII carried between checkout and payment as name|phone|email|note.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Note  string `json:"note"`
}

func EncodeCustomer(c Customer) (string, error) {
	for _, f := range []string{c.Name, c.Phone, c.Email} {
		if strings.Contains(f, "|") {
			return "", fmt.Errorf("%w: field contains '|'", ErrFormat)
		}
	}
	return strings.Join([]string{c.Name, c.Phone, c.Email, c.Note}, "|"), nil
}

// ParseCustomer requires at least name, phone and email segments. The note is
// everything after the third separator and may itself contain '|'.
func ParseCustomer(plain string) (Customer, error) {
	parts := strings.SplitN(plain, "|", 4)
	if len(parts) < 3 {
		return Customer{}, fmt.Errorf("%w: expected at least 3 customer fields, got %d", ErrFormat, len(parts))
	}
	c := Customer{Name: parts[0], Phone: parts[1], Email: parts[2]}
	if len(parts) == 4 {
		c.Note = parts[3]
	}
	return c, nil
}

func EncodeTable(number int, stallID string) string {
	if stallID == "" {
		return strconv.Itoa(number)
	}
	return strconv.Itoa(number) + ":" + stallID
}

// ParseTable reads "number" or "number:stallId". The number is ASCII digits only.
func ParseTable(plain string) (int, string, error) {
	num, stall, _ := strings.Cut(plain, ":")
	if !digitsRe.MatchString(num) {
		return 0, "", fmt.Errorf("%w: table number %q", ErrFormat, num)
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, "", fmt.Errorf("%w: table number %q", ErrFormat, num)
	}
	if n < MinTable || n > MaxTable {
		return 0, "", fmt.Errorf("%w: %d", ErrTableRange, n)
	}
	return n, stall, nil
}

func (c *Codec) EncryptCustomer(cust Customer) (string, error) {
	plain, err := EncodeCustomer(cust)
	if err != nil {
		return "", err
	}
	return c.Encrypt(plain)
}

func (c *Codec) DecryptCustomer(token string) (Customer, error) {
	plain, err := c.Decrypt(token)
	if err != nil {
		return Customer{}, err
	}
	return ParseCustomer(plain)
}

func (c *Codec) EncryptTable(number int, stallID string) (string, error) {
	if number < MinTable || number > MaxTable {
		return "", fmt.Errorf("%w: %d", ErrTableRange, number)
	}
	return c.Encrypt(EncodeTable(number, stallID))
}

func (c *Codec) DecryptTable(token string) (int, string, error) {
	plain, err := c.Decrypt(token)
	if err != nil {
		return 0, "", err
	}
	return ParseTable(plain)
}
