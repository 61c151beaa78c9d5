package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gaby/carvemerge/internal/filedesc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `<?xml version='1.0' encoding='UTF-8'?>
<dfxml xmloutputversion='1.0'>
  <source>
    <image_filename>/dev/sdb</image_filename>
  </source>
  <fileobject>
    <filename>f140247350_assets.zip</filename>
    <filesize>10499571</filesize>
    <byte_runs>
      <byte_run offset='0' img_offset='71823420416' len='10167808'/>
      <byte_run offset='10167808' img_offset='71833914368' len='4608'/>
      <byte_run offset='10172416' img_offset='71833920512' len='321024'/>
      <byte_run offset='10493440' img_offset='71835273216' len='6144'/>
    </byte_runs>
  </fileobject>
  <fileobject>
  </fileobject>
  <fileobject>
    <filename>f140197124_res.zip</filename>
    <filesize>80</filesize>
    <byte_runs>
      <byte_run offset='0' img_offset='1234' len='50'/>
      <byte_run offset='50' img_offset='5678' len='50'/>
    </byte_runs>
  </fileobject>
</dfxml>`

func TestParseAndImageFilename(t *testing.T) {
	rep, err := Parse(strings.NewReader(sampleReport))
	require.NoError(t, err)

	name, ok := rep.ImageFilename()
	require.True(t, ok)
	assert.Equal(t, "/dev/sdb", name)

	old, hadOld := rep.SetImageFilename("/dev/sdc")
	assert.True(t, hadOld)
	assert.Equal(t, "/dev/sdb", old)

	results := rep.All()
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	assert.Equal(t, "f140247350_assets.zip", results[0].Entry.Name)

	require.Error(t, results[1].Err)

	require.NoError(t, results[2].Err)
	assert.Equal(t, "f140197124_res.zip", results[2].Entry.Name)
	runs := results[2].Entry.Desc.Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, filedesc.ByteRun{FileOffset: 0, DiskPos: 1234, Len: 50}, runs[0])
	assert.Equal(t, filedesc.ByteRun{FileOffset: 50, DiskPos: 5678, Len: 30}, runs[1])
}

func TestFromDescriptionsRoundTrip(t *testing.T) {
	fd1, err := filedesc.New(80, []filedesc.ByteRun{
		{FileOffset: 0, DiskPos: 1234, Len: 50},
		{FileOffset: 50, DiskPos: 5678, Len: 30},
	})
	require.NoError(t, err)
	fd2, err := filedesc.New(70, []filedesc.ByteRun{
		{FileOffset: 0, DiskPos: 4321, Len: 20},
		{FileOffset: 20, DiskPos: 8765, Len: 50},
	})
	require.NoError(t, err)

	rep := FromDescriptions([]Entry{{Name: "a", Desc: fd1}, {Name: "b", Desc: fd2}})

	var buf bytes.Buffer
	_, err = rep.WriteTo(&buf)
	require.NoError(t, err)

	reread, err := Parse(&buf)
	require.NoError(t, err)
	results := reread.All()
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "a", results[0].Entry.Name)
	require.NoError(t, results[1].Err)
	assert.Equal(t, "b", results[1].Entry.Name)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("<dfxml xmloutputversion='1.0'"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestMissingImageFilename(t *testing.T) {
	rep, err := Parse(strings.NewReader(`<dfxml></dfxml>`))
	require.NoError(t, err)
	_, ok := rep.ImageFilename()
	assert.False(t, ok)

	rep, err = Parse(strings.NewReader(`<dfxml><source></source></dfxml>`))
	require.NoError(t, err)
	_, ok = rep.ImageFilename()
	assert.False(t, ok)
}

func TestIterErrors(t *testing.T) {
	s := `<dfxml>
      <fileobject />
      <fileobject>
        <filesize>123</filesize>
        <byte_runs>
          <byte_run offset='0' img_offset='1' len='2'/>
        </byte_runs>
      </fileobject>
      <fileobject>
        <filename>f1</filename>
        <byte_runs>
          <byte_run offset='0' img_offset='1' len='2'/>
        </byte_runs>
      </fileobject>
      <fileobject>
        <filename>f2</filename>
        <filesize>not-a-number</filesize>
        <byte_runs>
          <byte_run offset='0' img_offset='1' len='2'/>
        </byte_runs>
      </fileobject>
      <fileobject>
        <filename>f2</filename>
        <filesize>10499571</filesize>
      </fileobject>
      <fileobject>
        <filename>f3</filename>
        <filesize>10499571</filesize>
        <byte_runs />
      </fileobject>
      <fileobject>
        <filename>f4</filename>
        <filesize>10499571</filesize>
        <byte_runs>
          <bad_name />
        </byte_runs>
      </fileobject>
    </dfxml>`
	rep, err := Parse(strings.NewReader(s))
	require.NoError(t, err)
	results := rep.All()
	require.Len(t, results, 7)

	var mf *MissingFieldError
	require.ErrorAs(t, results[0].Err, &mf)
	assert.Equal(t, "filename", mf.FieldName)

	require.ErrorAs(t, results[1].Err, &mf)
	assert.Equal(t, "filename", mf.FieldName)

	require.ErrorAs(t, results[2].Err, &mf)
	assert.Equal(t, "filesize", mf.FieldName)

	var mt *MalformedTextError
	require.ErrorAs(t, results[3].Err, &mt)
	assert.Equal(t, "filesize", mt.FieldName)

	require.ErrorAs(t, results[4].Err, &mf)
	assert.Equal(t, "byte_runs", mf.FieldName)

	var bfd *BadFileDescriptionError
	require.ErrorAs(t, results[5].Err, &bfd)
	assert.Equal(t, "f3", bfd.FileName)
	assert.ErrorIs(t, bfd.Source, filedesc.ErrEmpty)

	var bcn *BadChildNameError
	require.ErrorAs(t, results[6].Err, &bcn)
	assert.Equal(t, "byte_run", bcn.ExpectedName)
	assert.Equal(t, "bad_name", bcn.FieldName)
}
