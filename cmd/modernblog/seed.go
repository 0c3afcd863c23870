package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Giriprasad013-git/modern-blog/content"
)

type seedFile struct {
	Posts []seedPost `yaml:"posts"`
}

type seedPost struct {
	Title    string   `yaml:"title"`
	Slug     string   `yaml:"slug"`
	Excerpt  string   `yaml:"excerpt"`
	Content  string   `yaml:"content"`
	Image    string   `yaml:"image"`
	Category string   `yaml:"category"`
	Author   string   `yaml:"author"`
	Date     string   `yaml:"date"`
	ReadTime int      `yaml:"read_time"`
	Tags     []string `yaml:"tags"`
}

func (p seedPost) input() content.PostInput {
	return content.PostInput{
		Title:    p.Title,
		Slug:     p.Slug,
		Excerpt:  p.Excerpt,
		Content:  p.Content,
		Image:    p.Image,
		Category: p.Category,
		Author:   p.Author,
		Date:     p.Date,
		ReadTime: p.ReadTime,
		Tags:     p.Tags,
	}
}

func readSeed(path string) ([]seedPost, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read seed file")
	}
	return parseSeed(data)
}

func parseSeed(data []byte) ([]seedPost, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse seed file")
	}
	return f.Posts, nil
}

type postSaver interface {
	PostBySlug(ctx context.Context, slug string) (content.Post, error)
	Save(ctx context.Context, in content.PostInput) (content.Post, error)
}

// seed saves every post whose slug is not taken yet and returns how many
// were created.
func seed(ctx context.Context, svc postSaver, posts []seedPost) (int, error) {
	created := 0
	for _, p := range posts {
		in := p.input()
		in.Slug = content.Slugify(in.Slug)
		if in.Slug == "" {
			in.Slug = content.Slugify(in.Title)
		}
		if in.Slug != "" {
			_, err := svc.PostBySlug(ctx, in.Slug)
			if err == nil {
				continue
			}
			if !errors.Is(err, content.ErrNotFound) {
				return created, err
			}
		}
		if _, err := svc.Save(ctx, in); err != nil {
			return created, errors.Wrapf(err, "seed %q", in.Slug)
		}
		created++
	}
	return created, nil
}
