package prestashop

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/erp/prestashop-connector/internal/domain/connector"
)

// Filters are web service query options (filter[...], limit, sort, display, date)
type Filters map[string]string

// Image is a product or category image fetched from the web service
type Image struct {
	// Type is the content type returned by PrestaShop
	Type string
	// Content is the base64 encoded image
	Content       string
	Data          []byte
	Resource      string
	ResourceID    int64
	ImageID       int64
	FullPublicURL string
}

// IDKey returns the key naming the owner id, e.g. "id_product" for products
func (i *Image) IDKey() string {
	return "id_" + strings.TrimSuffix(i.Resource, "s")
}

// Client is a PrestaShop web service client for one shop
type Client struct {
	config *Config
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a client. The webservice key is sent as the basic auth
// user name with an empty password.
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(config.APIURL()).
		SetBasicAuth(config.WebserviceKey, "").
		SetTimeout(config.Timeout).
		SetRetryCount(config.RetryCount).
		SetRetryWaitTime(config.RetryWait).
		SetHeader("Accept", "application/xml").
		SetHeader("User-Agent", "prestashop-connector/1.0").
		SetDebug(config.Debug).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= 500)
		})

	return &Client{
		config: config,
		http:   httpClient,
		logger: logger.With(zap.String("prestashop", config.APIURL())),
	}, nil
}

// Version returns the PrestaShop version the client was configured for
func (c *Client) Version() connector.Version {
	return c.config.Version
}

// APIURL returns the normalized web service URL
func (c *Client) APIURL() string {
	return c.config.APIURL()
}

// Search returns the ids of the resource matching filters, in the order
// the server lists them
func (c *Client) Search(ctx context.Context, resource string, filters Filters) ([]int64, error) {
	c.logger.Debug("method search", zap.String("resource", resource), zap.Any("filters", filters))

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(filters).
		Get(resource)
	body, err := c.check(resp, err, resource, 0)
	if err != nil {
		return nil, err
	}

	_, content, err := Decode(body)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for key := range content {
		if key == AttrsKey || key == ValueKey {
			continue
		}
		for _, item := range content.List(key) {
			if id := item.Attrs().Int64("id"); id > 0 {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// Get reads one record
func (c *Client) Get(ctx context.Context, resource string, id int64, filters Filters) (Record, error) {
	c.logger.Debug("method read", zap.String("resource", resource), zap.Int64("id", id))

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(filters).
		Get(resourcePath(resource, id))
	body, err := c.check(resp, err, resource, id)
	if err != nil {
		return nil, err
	}
	_, record, err := Decode(body)
	return record, err
}

// Add creates a record and returns it as stored by PrestaShop
func (c *Client) Add(ctx context.Context, resource, node string, record Record) (Record, error) {
	c.logger.Debug("method create", zap.String("resource", resource))

	payload, err := Encode(node, record)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/xml").
		SetBody(payload).
		Post(resource)
	body, err := c.check(resp, err, resource, 0)
	if err != nil {
		return nil, err
	}
	_, created, err := Decode(body)
	return created, err
}

// Edit updates some fields of a record. The web service only accepts full
// documents on PUT, so the record is read, merged with fields and written
// back.
func (c *Client) Edit(ctx context.Context, resource string, id int64, fields Record) (Record, error) {
	c.logger.Debug("method partial_edit", zap.String("resource", resource), zap.Int64("id", id))

	resp, err := c.http.R().SetContext(ctx).Get(resourcePath(resource, id))
	body, err := c.check(resp, err, resource, id)
	if err != nil {
		return nil, err
	}
	node, current, err := Decode(body)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		current[k] = v
	}

	payload, err := Encode(node, current)
	if err != nil {
		return nil, err
	}
	resp, err = c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/xml").
		SetBody(payload).
		Put(resourcePath(resource, id))
	body, err = c.check(resp, err, resource, id)
	if err != nil {
		return nil, err
	}
	_, updated, err := Decode(body)
	return updated, err
}

// Delete deletes one or several records
func (c *Client) Delete(ctx context.Context, resource string, ids ...int64) error {
	c.logger.Debug("method delete", zap.String("resource", resource), zap.Int64s("ids", ids))

	req := c.http.R().SetContext(ctx)
	var path string
	switch len(ids) {
	case 0:
		return fmt.Errorf("prestashop: delete %s: no id", resource)
	case 1:
		path = resourcePath(resource, ids[0])
	default:
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatInt(id, 10)
		}
		path = resource
		req.SetQueryParam("id", "["+strings.Join(parts, ",")+"]")
	}
	resp, err := req.Delete(path)
	var first int64
	if len(ids) == 1 {
		first = ids[0]
	}
	_, err = c.check(resp, err, resource, first)
	return err
}

// Head checks that a resource is reachable. An empty resource checks the
// API root, which validates the location and the key.
func (c *Client) Head(ctx context.Context, resource string, id int64) error {
	path := "/"
	if resource != "" {
		path = resourcePath(resource, id)
	}
	resp, err := c.http.R().SetContext(ctx).Head(path)
	_, err = c.check(resp, err, resource, id)
	return err
}

// GetImage downloads images/<resource>/<resourceID>/<imageID>
func (c *Client) GetImage(ctx context.Context, resource string, resourceID, imageID int64, filters Filters) (*Image, error) {
	path := fmt.Sprintf("images/%s/%d/%d", resource, resourceID, imageID)
	c.logger.Debug("method get_image", zap.String("path", path))

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(filters).
		Get(path)
	body, err := c.check(resp, err, "images/"+resource, imageID)
	if err != nil {
		return nil, err
	}

	img := &Image{
		Type:       resp.Header().Get("Content-Type"),
		Data:       body,
		Resource:   resource,
		ResourceID: resourceID,
		ImageID:    imageID,
	}
	if len(body) > 0 {
		img.Content = base64.StdEncoding.EncodeToString(body)
	}
	img.FullPublicURL = PublicImageURL(c.APIURL(), imageID, img.Type)
	return img, nil
}

// PublicImageURL returns the front office URL of a product image:
// <shop>/img/p/<digits of id joined by "/">/<id>[.jpg]
func PublicImageURL(apiURL string, imageID int64, contentType string) string {
	id := strconv.FormatInt(imageID, 10)
	url := strings.ReplaceAll(strings.TrimRight(apiURL, "/")+"/", "/api", "")
	url += "img/p/" + strings.Join(strings.Split(id, ""), "/")
	extension := ""
	if strings.HasPrefix(contentType, "image/jpeg") {
		extension = ".jpg"
	}
	return url + "/" + id + extension
}

func (c *Client) check(resp *resty.Response, err error, resource string, id int64) ([]byte, error) {
	status := 0
	var body []byte
	if resp != nil {
		status = resp.StatusCode()
		body = resp.Body()
	}
	if mapped := mapError(err, status, body, resource, id); mapped != nil {
		c.logger.Debug("web service call failed",
			zap.String("resource", resource),
			zap.Int64("id", id),
			zap.Int("status", status),
			zap.Error(mapped),
		)
		return nil, mapped
	}
	if c.config.MaxResponseSize > 0 && int64(len(body)) > c.config.MaxResponseSize {
		return nil, fmt.Errorf("prestashop: %s response exceeds %d bytes", resource, c.config.MaxResponseSize)
	}
	return body, nil
}

func resourcePath(resource string, id int64) string {
	if id == 0 {
		return resource
	}
	return resource + "/" + strconv.FormatInt(id, 10)
}
