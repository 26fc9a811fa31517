package simulator

// YAMLStats is a flattened, yaml.v3-friendly view of Stats for the
// `--stats-format yaml` CLI mode. It mirrors the reference
// implementation's get_stats() dict shape, which was already
// machine-oriented but never actually serialized.
type YAMLStats struct {
	DTLB *struct {
		Hits uint64 `yaml:"hits"`
		Misses uint64 `yaml:"misses"`
		HitRate float64 `yaml:"hit_rate"`
	} `yaml:"dtlb,omitempty"`

	PageTable *struct {
		Hits uint64 `yaml:"hits"`
		Misses uint64 `yaml:"misses"`
		HitRate float64 `yaml:"hit_rate"`
		DiskReferences uint64 `yaml:"disk_references"`
	} `yaml:"page_table,omitempty"`

	DC struct {
		Hits uint64 `yaml:"hits"`
		Misses uint64 `yaml:"misses"`
		HitRate float64 `yaml:"hit_rate"`
	} `yaml:"dc"`

	L2 *struct {
		Hits uint64 `yaml:"hits"`
		Misses uint64 `yaml:"misses"`
		HitRate float64 `yaml:"hit_rate"`
	} `yaml:"l2,omitempty"`

	Reads uint64 `yaml:"reads"`
	Writes uint64 `yaml:"writes"`
	ReadRatio float64 `yaml:"read_ratio"`
	MainMemory uint64 `yaml:"main_memory_references"`
	PageRefs uint64 `yaml:"page_table_references,omitempty"`
	DiskRefs uint64 `yaml:"disk_references,omitempty"`
}

// YAMLStats builds the YAML-serializable statistics snapshot.
func (s *Simulator) YAMLStats() YAMLStats {
	st := s.GetStats()
	var out YAMLStats

	if st.DTLB != nil {
		out.DTLB = &struct {
			Hits uint64 `yaml:"hits"`
			Misses uint64 `yaml:"misses"`
			HitRate float64 `yaml:"hit_rate"`
		}{Hits: st.DTLB.Hits, Misses: st.DTLB.Misses, HitRate: st.DTLB.HitRate()}
	}
	if st.PageTable != nil {
		out.PageTable = &struct {
			Hits uint64 `yaml:"hits"`
			Misses uint64 `yaml:"misses"`
			HitRate float64 `yaml:"hit_rate"`
			DiskReferences uint64 `yaml:"disk_references"`
		}{Hits: st.PageTable.Hits, Misses: st.PageTable.Misses, HitRate: st.PageTable.HitRate(), DiskReferences: st.PageTable.DiskReferences}
		out.PageRefs = st.PageTable.Hits + st.PageTable.Misses
		out.DiskRefs = st.PageTable.DiskReferences
	}
	out.DC.Hits, out.DC.Misses, out.DC.HitRate = st.DC.Hits(), st.DC.Misses(), st.DC.HitRate()
	if st.L2 != nil {
		out.L2 = &struct {
			Hits uint64 `yaml:"hits"`
			Misses uint64 `yaml:"misses"`
			HitRate float64 `yaml:"hit_rate"`
		}{Hits: st.L2.Hits(), Misses: st.L2.Misses(), HitRate: st.L2.HitRate()}
	}
	out.Reads, out.Writes, out.ReadRatio = st.Reads, st.Writes, st.ReadRatio
	out.MainMemory = st.MainMemory.Reads + st.MainMemory.Writes
	return out
}
