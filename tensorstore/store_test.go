package tensorstore

import (
	"math"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/nwp-consumer/core/coords"
	"github.com/nwp-consumer/core/parameter"
	"github.com/nwp-consumer/core/repometa"
)

func testCoords(it time.Time) coords.Coords {
	return coords.Coords{
		InitTime:  []time.Time{it},
		Step:      []int{0, 6},
		Variable:  []string{"temperature_sl"},
		Latitude:  []float64{51.0, 50.0},
		Longitude: []float64{0.0, 1.0},
	}
}

func testModel() repometa.Model {
	return repometa.Model{Name: "test-model", MaxConnections: 1, RunningHours: []int{0}}
}

var _ = Describe("Store", func() {
	var (
		dir   string
		model repometa.Model
		it    time.Time
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "nwpc-store-")
		Expect(err).NotTo(HaveOccurred())
		model = testModel()
		it = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("initializes an empty store with no chunk files on disk", func() {
		c := testCoords(it)
		storeDir := filepath.Join(dir, "store")
		s, err := InitializeEmpty(storeDir, c, model, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Attrs.SizeMB).To(BeZero())

		entries, err := os.ReadDir(filepath.Join(storeDir, chunksSubdir))
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("refuses to overwrite an existing store without the overwrite flag", func() {
		c := testCoords(it)
		storeDir := filepath.Join(dir, "store")
		_, err := InitializeEmpty(storeDir, c, model, false)
		Expect(err).NotTo(HaveOccurred())

		_, err = InitializeEmpty(storeDir, c, model, false)
		Expect(err).To(HaveOccurred())
	})

	It("writes a fragment and reads an equal slab back, growing size_mb", func() {
		c := testCoords(it)
		storeDir := filepath.Join(dir, "store")
		s, err := InitializeEmpty(storeDir, c, model, false)
		Expect(err).NotTo(HaveOccurred())

		param, ok := parameter.Canonical("temperature_sl")
		Expect(ok).To(BeTrue())

		data := []float64{1, 2, 3, 4, 5, 6, 7, 8}
		frag := Fragment{Parameter: param, Coords: c, Data: data}

		n, err := s.WriteToRegion(frag, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeNumerically(">", 0))
		Expect(s.Attrs.SizeMB).To(BeNumerically(">", 0))

		got, err := s.gatherRegion(c)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Data).To(Equal(data))
	})

	It("leaves never-written slabs as NaN", func() {
		c := testCoords(it)
		storeDir := filepath.Join(dir, "store")
		s, err := InitializeEmpty(storeDir, c, model, false)
		Expect(err).NotTo(HaveOccurred())

		got, err := s.gatherRegion(c)
		Expect(err).NotTo(HaveOccurred())
		for _, v := range got.Data {
			Expect(math.IsNaN(v)).To(BeTrue())
		}
	})

	It("produces the same final slab regardless of write order (write commutativity)", func() {
		c := testCoords(it)
		param, _ := parameter.Canonical("temperature_sl")

		half1 := c
		half1.Step = []int{0}
		half2 := c
		half2.Step = []int{6}

		frag1 := Fragment{Parameter: param, Coords: half1, Data: []float64{10, 20, 30, 40}}
		frag2 := Fragment{Parameter: param, Coords: half2, Data: []float64{50, 60, 70, 80}}

		dirA := filepath.Join(dir, "order-a")
		sA, err := InitializeEmpty(dirA, c, model, false)
		Expect(err).NotTo(HaveOccurred())
		_, err = sA.WriteToRegion(frag1, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = sA.WriteToRegion(frag2, nil)
		Expect(err).NotTo(HaveOccurred())

		dirB := filepath.Join(dir, "order-b")
		sB, err := InitializeEmpty(dirB, c, model, false)
		Expect(err).NotTo(HaveOccurred())
		_, err = sB.WriteToRegion(frag2, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = sB.WriteToRegion(frag1, nil)
		Expect(err).NotTo(HaveOccurred())

		gotA, err := sA.gatherRegion(c)
		Expect(err).NotTo(HaveOccurred())
		gotB, err := sB.gatherRegion(c)
		Expect(err).NotTo(HaveOccurred())
		Expect(gotA.Data).To(Equal(gotB.Data))
	})

	It("reports missing init_times that have never received a write", func() {
		it2 := it.Add(6 * time.Hour)
		c := coords.Coords{
			InitTime:  []time.Time{it, it2},
			Step:      []int{0},
			Variable:  []string{"temperature_sl"},
			Latitude:  []float64{51.0, 50.0},
			Longitude: []float64{0.0, 1.0},
		}
		storeDir := filepath.Join(dir, "store")
		s, err := InitializeEmpty(storeDir, c, model, false)
		Expect(err).NotTo(HaveOccurred())

		param, _ := parameter.Canonical("temperature_sl")
		only1 := c
		only1.InitTime = []time.Time{it}
		frag := Fragment{Parameter: param, Coords: only1, Data: []float64{1, 2, 3, 4}}
		_, err = s.WriteToRegion(frag, nil)
		Expect(err).NotTo(HaveOccurred())

		missing, err := s.MissingTimes()
		Expect(err).NotTo(HaveOccurred())
		Expect(missing).To(HaveLen(1))
		Expect(missing[0]).To(BeTemporally("==", it2))
	})

	It("rebuilds its written-chunk index from disk on Open", func() {
		c := testCoords(it)
		storeDir := filepath.Join(dir, "store")
		s, err := InitializeEmpty(storeDir, c, model, false)
		Expect(err).NotTo(HaveOccurred())
		param, _ := parameter.Canonical("temperature_sl")
		_, err = s.WriteToRegion(Fragment{Parameter: param, Coords: c, Data: []float64{1, 2, 3, 4, 5, 6, 7, 8}}, nil)
		Expect(err).NotTo(HaveOccurred())

		reopened, err := Open(storeDir, model)
		Expect(err).NotTo(HaveOccurred())
		missing, err := reopened.MissingTimes()
		Expect(err).NotTo(HaveOccurred())
		Expect(missing).To(BeEmpty())
	})

	It("merges a consume store into an archive store and removes the source", func() {
		c := testCoords(it)
		storeDir := filepath.Join(dir, "store")
		s, err := InitializeEmpty(storeDir, c, model, false)
		Expect(err).NotTo(HaveOccurred())
		param, _ := parameter.Canonical("temperature_sl")
		data := []float64{1, 2, 3, 4, 5, 6, 7, 8}
		_, err = s.WriteToRegion(Fragment{Parameter: param, Coords: c, Data: data}, nil)
		Expect(err).NotTo(HaveOccurred())

		targetDir := filepath.Join(dir, "archive")
		err = s.Postprocess(repometa.PostprocessOptions{AppendToArchive: repometa.AppendMonthly}, targetDir)
		Expect(err).NotTo(HaveOccurred())

		_, err = os.Stat(storeDir)
		Expect(os.IsNotExist(err)).To(BeTrue())

		archived, err := Open(targetDir, model)
		Expect(err).NotTo(HaveOccurred())
		got, err := archived.gatherRegion(c)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Data).To(Equal(data))
	})
})
